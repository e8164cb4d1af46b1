package sources

import "time"

// bioRxiv has no keyword search API of its own, so the adapter queries
// Europe PMC with a publisher filter restricted to bioRxiv preprints.

// NewBioRxiv creates the bioRxiv adapter.
func NewBioRxiv() *EuropePMC {
	e := NewEuropePMC()
	e.name = NameBioRxiv
	e.extraQuery = `PUBLISHER:"bioRxiv"`
	return e
}

// NewBioRxivWithBase creates the adapter against a custom endpoint.
func NewBioRxivWithBase(baseURL string) *EuropePMC {
	e := NewBioRxiv()
	e.client = NewClient(ClientConfig{Interval: time.Millisecond, RetryDelay: time.Millisecond})
	e.baseURL = baseURL
	return e
}
