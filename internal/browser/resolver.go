package browser

import (
	"errors"
	"time"
)

// ErrNoMatchingSelector is returned when every candidate locator failed to
// produce a visible element inside the budget. Marketplace markup changes
// often enough that this is a transient condition from the caller's view.
var ErrNoMatchingSelector = errors.New("no matching selector")

// Locator describes one way to find an element on a marketplace page.
// Candidates are kept in data (ordered lists per marketplace) so a markup
// change is a data fix, not a control-flow change.
type Locator struct {
	Query string // CSS selector
	Label string // human-readable name for logs and errors
}

// Loc is a shorthand constructor for selector catalogs.
func Loc(query, label string) Locator {
	return Locator{Query: query, Label: label}
}

// Prober is the subset of Session the resolver needs. Split out so flow
// logic can be tested against a scripted fake.
type Prober interface {
	AwaitVisible(loc Locator, timeout time.Duration) error
	Visible(loc Locator) (bool, error)
}

// Resolver tries an ordered list of candidate locators under a shared time
// budget and returns the first one that matches a visible element.
type Resolver struct {
	// PerCandidateCap bounds how long any single candidate is waited for,
	// so early candidates cannot starve later ones.
	PerCandidateCap time.Duration
}

// Resolve returns the first candidate that resolves to a visible element.
// Each candidate is waited for up to min(PerCandidateCap, remaining budget).
// When the budget is exhausted with no match, ErrNoMatchingSelector.
func (r Resolver) Resolve(p Prober, candidates []Locator, budget time.Duration) (Locator, error) {
	deadline := time.Now().Add(budget)
	for _, cand := range candidates {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		wait := r.PerCandidateCap
		if wait <= 0 || wait > remaining {
			wait = remaining
		}
		if err := p.AwaitVisible(cand, wait); err == nil {
			return cand, nil
		} else if errors.Is(err, ErrSessionNotReady) {
			return Locator{}, err
		}
	}
	return Locator{}, ErrNoMatchingSelector
}

// Outcome is one branch of a Race: a labelled set of locators any of which
// ending up visible selects that branch.
type Outcome struct {
	Name     string
	Locators []Locator
}

// raceInterval is how often racing outcomes are re-checked. The login flow
// polls rather than blocking on one selector because three independent
// outcomes (code form, captcha, validation error) can each appear first.
const raceInterval = 500 * time.Millisecond

// Race polls the outcome sets until one of them has a visible locator or
// the budget elapses. Returns the winning outcome's name, or
// ErrNoMatchingSelector on overall timeout.
func (r Resolver) Race(p Prober, budget time.Duration, outcomes ...Outcome) (string, error) {
	deadline := time.Now().Add(budget)
	for {
		for _, o := range outcomes {
			for _, loc := range o.Locators {
				visible, err := p.Visible(loc)
				if errors.Is(err, ErrSessionNotReady) {
					return "", err
				}
				if err == nil && visible {
					return o.Name, nil
				}
			}
		}
		if time.Now().After(deadline) {
			return "", ErrNoMatchingSelector
		}
		time.Sleep(raceInterval)
	}
}
