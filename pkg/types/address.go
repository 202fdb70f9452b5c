package types

// Address is an opaque identifier for a triangle owner: the hex-encoded
// digest of an owning public key, or (in tests and genesis) a literal
// human-chosen string. Consensus treats addresses as plain byte sequences;
// only exact equality matters.
type Address string

// Empty reports whether the address carries no identity.
func (a Address) Empty() bool {
	return a == ""
}

func (a Address) String() string {
	return string(a)
}
