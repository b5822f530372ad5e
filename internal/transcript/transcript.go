// Package transcript normalises speech-recognition output against the hotel
// vocabulary before the text reaches intent detection. Telephone audio is
// narrow-band, so room categories and service names come back garbled more
// often than everyday words ("delux" for "deluxe", "junior suit" for
// "junior suite"); a phonetic pass over a small fixed vocabulary recovers
// most of them without another model round-trip.
package transcript

// Correction records one replacement made by the corrector.
type Correction struct {
	// Original is the text span as transcribed.
	Original string

	// Corrected is the vocabulary entry that replaced it.
	Corrected string

	// Confidence is the Jaro-Winkler score of the accepted match.
	Confidence float64
}

// Result is the outcome of correcting one utterance.
type Result struct {
	// Original is the input text, unchanged.
	Original string

	// Corrected is the text after all replacements. Equal to Original when
	// nothing matched.
	Corrected string

	// Corrections lists the replacements in utterance order.
	Corrections []Correction
}

// DefaultVocabulary returns the built-in hotel terms every corrector knows:
// room categories, spa services and common amenities. Callers append
// hotel-specific names (the property itself, restaurant names) on top.
func DefaultVocabulary() []string {
	return []string{
		"single room",
		"double room",
		"twin room",
		"suite",
		"junior suite",
		"deluxe",
		"deluxe room",
		"apartment",
		"penthouse",
		"massage",
		"sauna",
		"facial",
		"manicure",
		"pedicure",
		"jacuzzi",
		"breakfast",
		"parking",
		"late checkout",
		"airport shuttle",
	}
}
