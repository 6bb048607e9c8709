// Package alignment reconciles speaker segments with word-level transcript
// timestamps.
//
// Every input word lands in exactly one output segment. Words that overlap
// several speakers produce an overlapping segment; words in short pauses
// inherit the preceding speaker; the rest stay unattributed.
package alignment
