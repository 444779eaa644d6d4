// Package document writes extracted articles to disk as self-contained files.
//
// Text units are joined into paragraphs, breaks end paragraphs, and every
// image becomes a figure: the image itself embedded as a data URI when it
// was downloaded, or a "[image failed: <src>]" placeholder when it was not.
// Two formats are supported, Markdown (the default) and HTML.
//
// No file is ever overwritten. A name is reserved with O_EXCL, adding _1, _2
// and so on until one is free, and the content is written to a temporary
// file that is renamed over the reservation.
package document
