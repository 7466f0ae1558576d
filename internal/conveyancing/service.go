// Package conveyancing contains the typed consumers of the conveyancing API collections.
//
// Each consumer builds a request descriptor, branches on Result.OK, validates the shape it expects and decodes it.
// The raw Result is always returned as well so callers can show Result.Error to the user unchanged.
package conveyancing

import (
	"context"
	"fmt"
	"sort"

	"github.com/conveydesk/conveydesk/internal/client"
	"github.com/conveydesk/conveydesk/internal/schemas"
)

// Sender is implemented by *client.Client
type Sender interface {
	Send(ctx context.Context, d client.Descriptor) client.Result
}

type Service struct {
	sender  Sender
	schemas *schemas.Registry

	Cases                *Collection
	MortgageApplications *Collection
	Invoices             *Collection
	Appointments         *Collection
	Brokers              *Collection
	Branches             *Collection
	Banks                *Collection

	byName map[string]*Collection
}

// NewService returns the consumers for the standard collections. A nil registry uses the built-in schemas.
func NewService(sender Sender, registry *schemas.Registry) *Service {
	if registry == nil {
		registry = schemas.Default()
	}
	s := &Service{
		sender:  sender,
		schemas: registry,
		byName:  make(map[string]*Collection),
	}

	s.Cases = s.register("cases", "/cases", schemas.Case)
	s.MortgageApplications = s.register("mortgage-applications", "/mortgage-applications", schemas.MortgageApplication)
	s.Invoices = s.register("invoices", "/invoices", schemas.Invoice)
	s.Appointments = s.register("appointments", "/appointments", schemas.Appointment)
	s.Brokers = s.register("brokers", "/brokers", schemas.Broker)
	s.Branches = s.register("branches", "/branches", schemas.Branch)
	s.Banks = s.register("banks", "/banks", schemas.Bank)

	return s
}

func (s *Service) register(name, path, schema string) *Collection {
	c := &Collection{
		Name:    name,
		Path:    path,
		Schema:  schema,
		sender:  s.sender,
		schemas: s.schemas,
	}
	s.byName[name] = c
	return c
}

// Lookup returns the collection with the given name, e.g. "cases"
func (s *Service) Lookup(name string) (*Collection, error) {
	c, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown resource %q (valid resources: %v)", name, s.Names())
	}
	return c, nil
}

// Names returns the collection names in alphabetical order
func (s *Service) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
