package domain

// KeyPrefix namespaces every key the service writes to a shared store.
const KeyPrefix = "riahunter:"

// DefaultDimensions is the embedding width used when configuration omits it.
const DefaultDimensions = 768
