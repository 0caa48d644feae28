package app

// MaxRandomnessBatch caps how many outstanding requests the oracle receives per poll.
const MaxRandomnessBatch = 100
