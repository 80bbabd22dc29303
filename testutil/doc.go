// Package testutil provides helpers for lazyvec tests.
//
// This package is intended for use in tests only. It generates seeded
// random vectors and random proximity graphs made of unpersisted nodes.
//
//	rng := testutil.NewRNG(seed)
//	vec := rng.UniformVector(128)
//	nodes := rng.Graph(100, 8, version)
package testutil
