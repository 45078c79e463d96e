package mcpserver

// NoteFormatContract describes the note text encoding that LLM consumers
// should follow when creating or updating notes.
const NoteFormatContract = `# tissue Note Format

Every note is one plain-text file. The whole note is what you pass as ` + "`content`" + `.

## Structure

` + "```" + `
# #identifier Human-readable title

Body text. Any #word in the body becomes a tag.
[comment]: # (lines like this one are dropped when the note is read)
` + "```" + `

## Rules

1. **Title line.** The first line starting with ` + "`# `" + ` is the title line. Only the first one counts;
   later ` + "`# `" + ` lines are body text.
2. **Identifier.** The first ` + "`#word`" + ` on the title line is the note identifier, not part of
   the title. Omit it and a content-derived identifier is generated on create.
3. **Tags.** ` + "`#`" + ` followed by letters, digits, ` + "`_`" + `, ` + "`-`" + ` or ` + "`/`" + ` is a tag
   (e.g. ` + "`#project-x`" + `, ` + "`#work/q3`" + `). Further tags on the title line are tags too.
4. **Literal hash.** Write ` + "`##word`" + ` when you do not want a tag.
5. **Separator.** One blank line follows the title line.
6. **Comments.** Lines starting with ` + "`[comment]: `" + ` are discarded.
7. **Updates keep the identifier.** ` + "`update_note`" + ` stores the content under the given id whatever
   the title line says.
8. **Empty notes are refused.** A note needs a title or some text.

## Querying

Tags select notes: every include tag contributes the notes carrying it (union), then every
exclude tag removes its notes. An identifier can be used wherever a tag is expected.

## Example

` + "```" + `
# #standup-0120 Weekly standup

Attendees: Alice, Bob. #meeting #project-x

- review the design doc #todo
` + "```" + `
`
