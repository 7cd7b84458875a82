// Package archive relocates the week's measurement files into the week
// folder and compresses the folder into a zip archive next to it.
//
// Relocation is split in two halves around compression. Stage copies every
// input into the raw data folder without overwriting; Finalize removes the
// originals once the archive exists. A failure before Finalize leaves every
// input file where it was found.
package archive
