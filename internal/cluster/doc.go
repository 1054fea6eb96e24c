// Package cluster partitions dataset rows with seeded k-means.
//
// Seeding follows k-means++ using a PCG generator keyed by Config.Seed, so
// a given (rows, features, k, seed) always yields the same partition on
// every platform. Lloyd iterations then alternate nearest-centroid
// assignment and mean updates until no row changes cluster or
// Config.MaxIterations is reached.
//
// Cluster ids are relabelled in order of first appearance by row, which
// keeps ids stable across identical runs and keeps chart colours steady.
package cluster
