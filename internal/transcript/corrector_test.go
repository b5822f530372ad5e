package transcript_test

import (
	"testing"

	"github.com/voicehive/voicehive/internal/transcript"
)

func TestCorrect_SingleWord(t *testing.T) {
	t.Parallel()

	c := transcript.NewCorrector(transcript.DefaultVocabulary())
	res := c.Correct("I would like a delux for two nights")

	if res.Corrected != "I would like a deluxe for two nights" {
		t.Fatalf("Corrected = %q", res.Corrected)
	}
	if len(res.Corrections) != 1 {
		t.Fatalf("Corrections = %+v", res.Corrections)
	}
	corr := res.Corrections[0]
	if corr.Original != "delux" || corr.Corrected != "deluxe" {
		t.Errorf("correction = %+v", corr)
	}
	if corr.Confidence < 0.9 {
		t.Errorf("confidence = %v, want >= 0.9", corr.Confidence)
	}
}

func TestCorrect_MultiWordEntry(t *testing.T) {
	t.Parallel()

	c := transcript.NewCorrector(transcript.DefaultVocabulary())
	res := c.Correct("do you have a junior suit available")

	if res.Corrected != "do you have a junior suite available" {
		t.Fatalf("Corrected = %q", res.Corrected)
	}
	if len(res.Corrections) != 1 || res.Corrections[0].Original != "junior suit" {
		t.Fatalf("Corrections = %+v", res.Corrections)
	}
}

func TestCorrect_CleanTextUnchanged(t *testing.T) {
	t.Parallel()

	c := transcript.NewCorrector(transcript.DefaultVocabulary())
	cases := []string{
		"I want to book a junior suite",
		"is breakfast included",
		"can I leave a message for room 204",
		"we arrive late in the evening",
		"",
	}
	for _, text := range cases {
		res := c.Correct(text)
		if res.Corrected != text {
			t.Errorf("Correct(%q) rewrote to %q", text, res.Corrected)
		}
		if len(res.Corrections) != 0 {
			t.Errorf("Correct(%q) reported corrections %+v", text, res.Corrections)
		}
	}
}

func TestCorrect_SharedWordDoesNotDragInPhrase(t *testing.T) {
	t.Parallel()

	// "room" appears in several vocabulary phrases; on its own it must
	// never be expanded into one of them.
	c := transcript.NewCorrector(transcript.DefaultVocabulary())
	res := c.Correct("the room was great")
	if res.Corrected != "the room was great" {
		t.Fatalf("Corrected = %q", res.Corrected)
	}
}

func TestCorrect_HotelNamesInVocabulary(t *testing.T) {
	t.Parallel()

	vocab := append(transcript.DefaultVocabulary(), "Hotel Seeblick")
	c := transcript.NewCorrector(vocab)

	res := c.Correct("is this Hotel Seeblik")
	if res.Corrected != "is this Hotel Seeblick" {
		t.Fatalf("Corrected = %q", res.Corrected)
	}
}

func TestCorrect_EmptyVocabulary(t *testing.T) {
	t.Parallel()

	c := transcript.NewCorrector(nil)
	res := c.Correct("delux junior suit")
	if res.Corrected != "delux junior suit" || len(res.Corrections) != 0 {
		t.Fatalf("empty vocabulary changed text: %+v", res)
	}
}
