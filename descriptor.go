package twirl

import (
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// RPCEntry describes one registered RPC: its name, its request and
// response message types, and the handler method that serves it.
type RPCEntry struct {
	// Name is the RPC name as it appears in the URL, matched case-sensitively.
	Name string

	// Request and Response are the message types for the call.
	Request  protoreflect.MessageType
	Response protoreflect.MessageType

	// HandlerMethod is the name of the handler method that serves this
	// RPC. It is derived from Name by the identity transformation: Go
	// methods must be exported to be visible to reflection, so "MakeHat"
	// stays "MakeHat" rather than folding to a snake_case name.
	HandlerMethod string
}

// ServiceDescriptor describes a service type: its name, optional package,
// and its RPCs. Descriptors are built once by DescriptorBuilder and never
// mutated afterward, so they are safe to share across service instances
// and goroutines.
type ServiceDescriptor struct {
	packageName string
	serviceName string
	entries     []*RPCEntry
	byName      map[string]*RPCEntry
}

// Package returns the service's package name, which may be empty.
func (d *ServiceDescriptor) Package() string { return d.packageName }

// Name returns the service name.
func (d *ServiceDescriptor) Name() string { return d.serviceName }

// FullName returns "package.Service", or just the service name when the
// package is empty.
func (d *ServiceDescriptor) FullName() string {
	if d.packageName == "" {
		return d.serviceName
	}
	return d.packageName + "." + d.serviceName
}

// PathPrefix returns the URL prefix all of the service's RPCs are mounted
// under: "/twirp/" followed by the full name.
func (d *ServiceDescriptor) PathPrefix() string {
	return "/twirp/" + d.FullName()
}

// RPCs returns the service's RPC entries in registration order.
func (d *ServiceDescriptor) RPCs() []*RPCEntry {
	out := make([]*RPCEntry, len(d.entries))
	copy(out, d.entries)
	return out
}

// RPC returns the entry registered under name.
func (d *ServiceDescriptor) RPC(name string) (*RPCEntry, bool) {
	e, ok := d.byName[name]
	return e, ok
}

// DescriptorBuilder declares a service type. Declaration errors (missing
// service name, duplicate RPCs) are collected and reported by Build, so a
// declaration reads as a single chain.
type DescriptorBuilder struct {
	packageName string
	serviceName string
	entries     []*RPCEntry
	err         error
}

// NewDescriptor starts the declaration of a service. packageName may be
// empty; serviceName must not be.
func NewDescriptor(packageName, serviceName string) *DescriptorBuilder {
	b := &DescriptorBuilder{
		packageName: packageName,
		serviceName: serviceName,
	}
	if serviceName == "" {
		b.err = fmt.Errorf("twirl: service name must not be empty")
	}
	return b
}

// RPC declares one RPC with its request and response message types.
// Declaring the same name twice is a build error.
func (b *DescriptorBuilder) RPC(name string, req, resp protoreflect.MessageType) *DescriptorBuilder {
	if b.err != nil {
		return b
	}
	if name == "" {
		b.err = fmt.Errorf("twirl: rpc name must not be empty")
		return b
	}
	if req == nil || resp == nil {
		b.err = fmt.Errorf("twirl: rpc %s: request and response types are required", name)
		return b
	}
	for _, e := range b.entries {
		if e.Name == name {
			b.err = fmt.Errorf("twirl: rpc %s declared twice", name)
			return b
		}
	}
	b.entries = append(b.entries, &RPCEntry{
		Name:          name,
		Request:       req,
		Response:      resp,
		HandlerMethod: handlerMethodName(name),
	})
	return b
}

// Build finalizes the declaration and returns the immutable descriptor.
func (b *DescriptorBuilder) Build() (*ServiceDescriptor, error) {
	if b.err != nil {
		return nil, b.err
	}
	d := &ServiceDescriptor{
		packageName: b.packageName,
		serviceName: b.serviceName,
		entries:     make([]*RPCEntry, len(b.entries)),
		byName:      make(map[string]*RPCEntry, len(b.entries)),
	}
	copy(d.entries, b.entries)
	for _, e := range d.entries {
		d.byName[e.Name] = e
	}
	return d, nil
}

// handlerMethodName derives the handler method name for an RPC. The
// transformation is the identity mapping; see RPCEntry.HandlerMethod.
func handlerMethodName(rpcName string) string {
	return rpcName
}
