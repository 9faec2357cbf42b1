// Language games between agents.
package engine

import (
	"fmt"

	"github.com/talgya/concept-world/internal/agents"
	"github.com/talgya/concept-world/internal/concepts"
)

// Outcome is how a guessing game ended.
type Outcome uint8

const (
	OutcomeSuccess       Outcome = iota // hearer pointed at the topic
	OutcomeUnknownWord                  // hearer had no concept for the word
	OutcomeMisunderstood                // hearer pointed at another stimulus
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeUnknownWord:
		return "unknown word"
	default:
		return "misunderstood"
	}
}

// GuessingGame plays one guessing game on a raw context. The speaker names
// the topic; the hearer points at the stimulus it thinks the word means.
//
// On success both agents strengthen the word's link to their concept and
// the hearer folds the topic into its concept. A hearer that does not know
// the word adopts it for a concept of the topic. A hearer that
// misunderstood weakens its link, as does the speaker, and links the word
// to a concept of the topic as well. Both agents record a use of the word
// and the hearer's guessing stats are updated in every case.
func GuessingGame(speaker, hearer *agents.Agent, context []concepts.Percept, topic int) (Outcome, error) {
	if topic < 0 || topic >= len(context) {
		return 0, fmt.Errorf("guessing game: topic %d outside context of %d", topic, len(context))
	}
	sCtx := speaker.PerceiveContext(context)
	hCtx := hearer.PerceiveContext(context)

	sConcept, err := speakerConcept(speaker, sCtx, topic)
	if err != nil {
		return 0, fmt.Errorf("guessing game, speaker %s: %w", speaker.Name, err)
	}
	form, err := speaker.WordFor(sConcept)
	if err != nil {
		return 0, fmt.Errorf("guessing game, speaker %s: %w", speaker.Name, err)
	}
	guess, ok, err := hearer.AnswerGuessingGame(form, hCtx)
	if err != nil {
		return 0, fmt.Errorf("guessing game, hearer %s: %w", hearer.Name, err)
	}

	var outcome Outcome
	switch {
	case ok && guess.Index == topic:
		outcome = OutcomeSuccess
		if err := speaker.ApplyFeedback(true, form, sConcept, speaker.Config().LearningRate); err != nil {
			return 0, err
		}
		if err := hearer.ApplyFeedback(true, form, guess.Concept, hearer.Config().LearningRate); err != nil {
			return 0, err
		}
		if err := hearer.Space().AddExemplar(guess.Concept, hCtx[topic]); err != nil {
			return 0, fmt.Errorf("guessing game, hearer %s: %w", hearer.Name, err)
		}

	case !ok:
		outcome = OutcomeUnknownWord
		hConcept, err := hearerConcept(hearer, hCtx, topic)
		if err != nil {
			return 0, fmt.Errorf("guessing game, hearer %s: %w", hearer.Name, err)
		}
		tag := hearer.AdoptWord(form, hConcept)
		if err := speaker.Lexicon().RecordUse(speaker.Lexicon().Resolve(form)); err != nil {
			return 0, err
		}
		if err := hearer.Lexicon().RecordUse(tag); err != nil {
			return 0, err
		}

	default:
		outcome = OutcomeMisunderstood
		if err := speaker.ApplyFeedback(false, form, sConcept, speaker.Config().LearningRate); err != nil {
			return 0, err
		}
		if err := hearer.ApplyFeedback(false, form, guess.Concept, hearer.Config().LearningRate); err != nil {
			return 0, err
		}
		hConcept, err := hearerConcept(hearer, hCtx, topic)
		if err != nil {
			return 0, fmt.Errorf("guessing game, hearer %s: %w", hearer.Name, err)
		}
		hearer.AdoptWord(form, hConcept)
	}

	hearer.Stats.GuessingGames++
	if outcome == OutcomeSuccess {
		hearer.Stats.GuessingSuccesses++
	}
	return outcome, nil
}

// speakerConcept is the speaker's concept for the topic. A speaker without
// concepts forms one through a discrimination game.
func speakerConcept(a *agents.Agent, ctx []concepts.Percept, topic int) (string, error) {
	tag, ok, err := a.Recognize(ctx[topic])
	if err != nil || ok {
		return tag, err
	}
	return a.DiscriminationGame(ctx, topic)
}

// hearerConcept is the concept a hearer attaches a word to after a failed
// game: its closest concept once it discriminates well, otherwise the
// outcome of a fresh discrimination game.
func hearerConcept(a *agents.Agent, ctx []concepts.Percept, topic int) (string, error) {
	if a.Pretrained && a.Space().Len() > 0 {
		tag, _, err := a.Recognize(ctx[topic])
		return tag, err
	}
	return a.DiscriminationGame(ctx, topic)
}
