// Package highlight finds where an answer snippet sits inside a PDF and
// returns its on-page geometry for rendering highlights.
//
// Matching runs an ordered chain of strategies over the candidate pages:
// an exact search first, then a search for the snippet's first five words.
// A miss is not an error. It yields a Highlight with Matched false and a
// zero rect on the best-guess page.
package highlight
