package mcpserver

// OutlineFormatContract describes the indented outline format that LLM
// consumers should follow when writing collection files.
const OutlineFormatContract = `# Ont Outline Format Contract

Every file in an ont collection is an outline: a tree of lines where
indentation decides nesting.

## Structure

` + "```" + `
:title Project notes
:tags work planning
Roadmap *
  :tags q3
  ship the importer
    parse every source format
  Ship the exporter
>report.sh
  #!/bin/sh
  date +%Y
==
  2026
` + "```" + `

## Rules

1. **One indentation style per collection.** Pick tabs or a fixed number
   of spaces and use it in every file. The first indented line fixes the
   style; a line indented in any other way is rejected.
2. **A child is indented exactly one step deeper than its parent.** Skipping
   a level is an error.
3. **Attributes come first.** Lines of the form ` + "`:name value`" + ` at the top of
   a body are attributes of the section owning that body, not children.
   Once a regular line appears, later ` + "`:`" + ` lines are ordinary text.
4. **Tags** are a ` + "`:tags`" + ` attribute holding space-separated words. Tags apply
   to the section and everything below it.
5. **WikiWord headlines tag their subtree.** A headline such as
   ` + "`ShipTheExporter`" + ` adds the tag ` + "`ship-the-exporter`" + ` to its descendants.
6. **A trailing " *" marks a section as important.** It is not part of the
   title.
7. **Blank lines belong to the surrounding block** and are preserved.

## Collections

A collection directory maps onto one outline:

- ` + "`name.ext`" + ` with a single line becomes the section ` + "`name line`" + `.
- ` + "`name.ext`" + ` with several lines becomes ` + "`name`" + ` with the file contents as body.
- A directory ` + "`name/`" + ` becomes the section ` + "`name/`" + ` holding its entries.
- ` + "`:name.ext`" + ` holds the attribute ` + "`:name`" + ` of the enclosing outline.
- Files and directories starting with "." are ignored.

## Scripts

- A headline ` + "`>path`" + ` declares a script whose body is written to ` + "`path`" + `
  (relative, no ` + "`..`" + `). ` + "`>-`" + ` is an anonymous script.
- A body starting with ` + "`#!`" + ` is runnable; any other body is a data file the
  runnable scripts can read.
- A sibling ` + "`==`" + ` right after the script receives its output as the body.
- Weaving records an ` + "`:input`" + ` hash on each script it runs. Scripts are
  re-run only when their path or text change. Do not edit ` + "`:input`" + ` by hand.

## Example

` + "```" + `
Groceries
  :tags home
  milk
  bread *
>count.sh
  #!/bin/sh
  echo 2 items
==
  2 items
` + "```" + `
`
