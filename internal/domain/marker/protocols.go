package marker

import (
	"fmt"
	"sort"
)

// Built-in protocol names.
const (
	ProtocolVideoRating = "video_rating"
	ProtocolArrow       = "arrow"
)

// Event names emitted by the video-rating sequencer.
const (
	OpenStart          = "Open Start"
	OpenEnd            = "Open End"
	CloseStart         = "Close Start"
	CloseEnd           = "Close End"
	VideoStart         = "Video Start"
	VideoEnd           = "Video End"
	ValenceRatingStart = "Valence Rating Start"
	ValenceRatingEnd   = "Valence Rating End"
	ArousalRatingStart = "Arousal Rating Start"
	ArousalRatingEnd   = "Arousal Rating End"
	Press              = "Press"
	ExpEnd             = "Exp End"
)

// MinRating and MaxRating bound the keypad rating scale.
const (
	MinRating = 1
	MaxRating = 5
)

// ValenceName returns the event name for a valence rating of n.
func ValenceName(n int) string { return fmt.Sprintf("Valence %d", n) }

// ArousalName returns the event name for an arousal rating of n.
func ArousalName(n int) string { return fmt.Sprintf("Arousal %d", n) }

func videoRatingEntries() map[string]Code {
	entries := map[string]Code{
		Press: 1,

		OpenStart:  10,
		OpenEnd:    11,
		CloseStart: 12,
		CloseEnd:   13,

		VideoStart: 20,
		VideoEnd:   21,

		ValenceRatingStart: 30,
		ValenceRatingEnd:   31,
		ArousalRatingStart: 40,
		ArousalRatingEnd:   41,

		// Emotion category labels sent right after Video Start.
		"Happy":    71,
		"Sad":      72,
		"Angry":    73,
		"Calm":     74,
		"Fear":     75,
		"Neutral":  76,
		"Disgust":  77,
		"Surprise": 78,

		ExpEnd: 250,
	}
	for n := MinRating; n <= MaxRating; n++ {
		entries[ValenceName(n)] = Code(50 + n)
		entries[ArousalName(n)] = Code(60 + n)
	}
	return entries
}

// arrowEntries is the arrow/number-cued protocol. "1" shares its code with
// Press in the video-rating table; the two tables are never merged.
func arrowEntries() map[string]Code {
	return map[string]Code{
		// Arrow direction
		"Rest":           50,
		"Up":             80,
		"Down":           20,
		"Left Close":     40,
		"Right Close":    60,
		"Up Left Close":  70,
		"Up Right Close": 90,
		"Left Far":       41,
		"Right Far":      61,
		"Up Left Far":    71,
		"Up Right Far":   91,

		// Number shown
		"One":   11,
		"Two":   22,
		"Three": 33,
		"Four":  44,
		"Five":  55,
		"Six":   66,
		"Seven": 77,
		"Eight": 88,
		"Nine":  99,

		// User response
		"0":          0,
		"1":          1,
		"UserRes":    254,
		"UserNotRes": 255,

		// Epoch
		"Start": 101,
		"End":   102,

		// Response check
		"True":  201,
		"False": 202,

		"NumberShow": 111,
		"NumberHide": 112,

		"Bad": 222,
	}
}

var builtins = map[string]func() map[string]Code{ //nolint:gochecknoglobals // read-only protocol registry
	ProtocolVideoRating: videoRatingEntries,
	ProtocolArrow:       arrowEntries,
}

// Builtin returns a fresh Table for a built-in protocol.
func Builtin(protocol string) (*Table, error) {
	entries, ok := builtins[protocol]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownTable, protocol, BuiltinNames())
	}
	return New(protocol, entries())
}

// BuiltinNames lists the built-in protocol names.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SequencerNames returns the fixed event names the video-rating sequencer
// emits outside the per-trial category labels.
func SequencerNames() []string {
	names := []string{
		OpenStart, OpenEnd, CloseStart, CloseEnd,
		VideoStart, VideoEnd,
		ValenceRatingStart, ValenceRatingEnd,
		ArousalRatingStart, ArousalRatingEnd,
		Press, ExpEnd,
	}
	for n := MinRating; n <= MaxRating; n++ {
		names = append(names, ValenceName(n), ArousalName(n))
	}
	return names
}
