package mcpserver

// ChordProContract describes the song format LLM consumers should follow
// when creating or importing songs.
const ChordProContract = `# Chordbook Song Format Contract

Songs are plain UTF-8 text files in ChordPro notation. Ultimate Guitar
style sheets (chords on their own line above the lyrics) are accepted and
can be converted with the ` + "`" + `convert_to_chordpro` + "`" + ` tool.

## Structure

` + "```" + `
---
title: Human-readable title         # OPTIONAL frontmatter; wins over directives
artist: Performer
key: G
tags: [folk, campfire]
---
{title: Human-readable title}
{artist: Performer}
{key: G}

{start_of_verse: Verse 1}
[G]Hello there [D]my friend
{end_of_verse}

{start_of_chorus}
[C]Sing it [G]again
{end_of_chorus}
` + "```" + `

## Rules

1. **Chords** go inline in square brackets directly before the syllable they
   fall on: ` + "`" + `[Am]word` + "`" + `. Slash chords (` + "`" + `G/B` + "`" + `) and extensions
   (` + "`" + `Cmaj7` + "`" + `, ` + "`" + `Dsus4` + "`" + `) are allowed.
2. **Metadata directives** (` + "`" + `{title: ...}` + "`" + `, ` + "`" + `{artist: ...}` + "`" + `,
   ` + "`" + `{key: ...}` + "`" + `, ` + "`" + `{capo: ...}` + "`" + `, ` + "`" + `{tag: ...}` + "`" + `) come first.
3. **Sections** are wrapped in ` + "`" + `{start_of_verse}` + "`" + `/` + "`" + `{end_of_verse}` + "`" + `,
   ` + "`" + `{start_of_chorus}` + "`" + `/` + "`" + `{end_of_chorus}` + "`" + ` or
   ` + "`" + `{start_of_bridge}` + "`" + `/` + "`" + `{end_of_bridge}` + "`" + `. A label may follow the colon.
4. **Comments** use ` + "`" + `{comment: ...}` + "`" + ` and render as notes above the lines.
5. **File paths** end with ` + "`" + `.cho` + "`" + ` (also accepted: ` + "`" + `.chordpro` + "`" + `,
   ` + "`" + `.crd` + "`" + `, ` + "`" + `.txt` + "`" + `) and use forward slashes. File and directory
   names MUST be in English (Latin characters); lyrics may use any language.
6. **Do not mix notations.** A file holds either ChordPro or an Ultimate Guitar
   sheet, never both.

## Attachments

Charts, PDFs and recordings live in the flat ` + "`" + `attachments/` + "`" + ` directory and are
referenced as ` + "`" + `/attachments/<filename>` + "`" + `.
`
