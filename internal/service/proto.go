package service

import (
	"fmt"

	"github.com/funvibe/typelattice/internal/config"
	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"google.golang.org/protobuf/types/descriptorpb"
)

// latticeProto is parsed at start-up; there is no generated code.
// sub and sup are type documents in YAML text.
const latticeProto = `syntax = "proto3";

package typelattice.v1;

service Lattice {
  rpc Decide(DecideRequest) returns (DecideResponse);
}

message DecideRequest {
  string sub = 1;
  string sup = 2;
}

message DecideResponse {
  bool result = 1;
  string id = 2;
  int64 passes = 3;
  string sub = 4;
  string sup = 5;
}
`

var wantFields = map[string]map[string]descriptorpb.FieldDescriptorProto_Type{
	"typelattice.v1.DecideRequest": {
		"sub": descriptorpb.FieldDescriptorProto_TYPE_STRING,
		"sup": descriptorpb.FieldDescriptorProto_TYPE_STRING,
	},
	"typelattice.v1.DecideResponse": {
		"result": descriptorpb.FieldDescriptorProto_TYPE_BOOL,
		"id":     descriptorpb.FieldDescriptorProto_TYPE_STRING,
		"passes": descriptorpb.FieldDescriptorProto_TYPE_INT64,
		"sub":    descriptorpb.FieldDescriptorProto_TYPE_STRING,
		"sup":    descriptorpb.FieldDescriptorProto_TYPE_STRING,
	},
}

// loadService parses the embedded proto and returns the Lattice service.
func loadService() (*desc.ServiceDescriptor, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{
			config.ServiceProtoFile: latticeProto,
		}),
	}
	fds, err := parser.ParseFiles(config.ServiceProtoFile)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", config.ServiceProtoFile, err)
	}
	sd := fds[0].FindService(config.ServiceName)
	if sd == nil {
		return nil, fmt.Errorf("service %s not found in %s", config.ServiceName, config.ServiceProtoFile)
	}
	for _, md := range sd.GetMethods() {
		for _, msg := range []*desc.MessageDescriptor{md.GetInputType(), md.GetOutputType()} {
			if err := checkFields(msg); err != nil {
				return nil, err
			}
		}
	}
	return sd, nil
}

func checkFields(msg *desc.MessageDescriptor) error {
	want, ok := wantFields[msg.GetFullyQualifiedName()]
	if !ok {
		return fmt.Errorf("unexpected message %s", msg.GetFullyQualifiedName())
	}
	for name, typ := range want {
		fd := msg.FindFieldByName(name)
		if fd == nil {
			return fmt.Errorf("%s: missing field %s", msg.GetFullyQualifiedName(), name)
		}
		if fd.GetType() != typ {
			return fmt.Errorf("%s.%s: type %s, want %s", msg.GetFullyQualifiedName(), name, fd.GetType(), typ)
		}
	}
	return nil
}
