// Package geo is the geolocation collaborator boundary. The shipped
// resolver is a stub; a real implementation would map a client address to a
// location.
package geo

// Location is a coarse country/region/city triple.
type Location struct {
	Country string
	Region  string
	City    string
}

// Resolver maps a client network address to a coarse location.
type Resolver interface {
	Resolve(remoteAddr string) Location
}

// Stub always reports an unknown location.
type Stub struct{}

func NewStub() Stub { return Stub{} }

func (Stub) Resolve(string) Location {
	return Location{Country: "Unknown", Region: "Unknown", City: "Unknown"}
}
