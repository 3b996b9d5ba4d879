// Package caption renders cluster interpretations into one-sentence
// captions.
//
// A Policy decides which labels qualify (score threshold, labels per
// dimension), in which order dimensions are rendered, and how each dimension
// reads. Dimensions with a subject template form the head of the sentence;
// the first qualifying one wins and the head defaults to "an artwork".
// Modifier clauses follow in dimension order:
//
//	A portrait painting depicting women, rendered in oil and in baroque style.
//
// When no dimension qualifies the policy's fallback text is returned.
// Rendering is a pure function of the policy and the interpretation.
package caption
