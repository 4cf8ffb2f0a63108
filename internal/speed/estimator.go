// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package speed

// Estimator holds the most recent fix and turns a sequence of fixes into speeds. It is not safe
// for concurrent use; fixes are expected to arrive one after another.
type Estimator struct {
	previous     Fix
	havePrevious bool
}

// Update feeds the next fix into the estimator and returns the estimated speed in m/s.
func (e *Estimator) Update(current Fix) float64 {
	var prev *Fix
	if e.havePrevious {
		prev = &e.previous
	}
	mps, updated := Estimate(prev, current)
	e.previous = updated
	e.havePrevious = true
	return mps
}

// Previous returns the stored fix and whether one exists.
func (e *Estimator) Previous() (Fix, bool) {
	return e.previous, e.havePrevious
}

// Reset forgets the stored fix, so the next update reports a speed of 0.
func (e *Estimator) Reset() {
	e.previous = Fix{}
	e.havePrevious = false
}
