package testutil

import "testing"

// Given, When and Then name the steps of a scenario test. Steps nest, so a
// failing assertion reports the whole path, e.g.
// "Given a new user/When day 3 passes/Then the domain promotes".
func Given(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run("Then "+desc, fn)
}
