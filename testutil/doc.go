// Package testutil provides testing utilities for geocluster.
//
// This package is intended for use in tests and benchmarks only.
//
// # Random Cities
//
//	rng := testutil.NewRNG(seed)
//	cities := rng.Cities(1000)                      // uniform on the globe
//	groups := rng.ClusteredCities(100, 2, 0.5)      // two tight groups
//
// # Fake Source
//
//	src := testutil.NewSource(cities)
//	src.FailOffset(20, testutil.RateLimited(3))     // three 429s, then data
package testutil
