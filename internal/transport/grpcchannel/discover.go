package grpcchannel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/grpcreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/shhac/soapbridge/internal/domain"
)

// Discover lists the services exposed by a reflection-enabled server and
// converts them to contract definitions for the registry. Services that fail
// to resolve are skipped, not fatal.
func Discover(ctx context.Context, endpoint string, cfg domain.TransportConfig, logger *slog.Logger) ([]domain.ContractDefinition, error) {
	conn, err := dial(endpoint, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer conn.Close()

	refClient := grpcreflect.NewClientAuto(ctx, conn)
	defer refClient.Reset()
	refClient.AllowFallbackResolver(protoregistry.GlobalFiles, protoregistry.GlobalTypes)
	refClient.AllowMissingFileDescriptors()

	serviceNames, err := refClient.ListServices()
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	var defs []domain.ContractDefinition
	for _, name := range serviceNames {
		if name == "grpc.reflection.v1alpha.ServerReflection" ||
			name == "grpc.reflection.v1.ServerReflection" {
			continue
		}

		svcDesc, err := refClient.ResolveService(name)
		if err != nil {
			logger.Warn("failed to resolve service, skipping",
				slog.String("service", name),
				slog.Any("error", err),
			)
			continue
		}

		defs = append(defs, contractDefinition(svcDesc, logger))
	}

	logger.Info("discovered contracts",
		slog.String("endpoint", endpoint),
		slog.Int("count", len(defs)),
	)
	return defs, nil
}

// contractDefinition maps a resolved service descriptor to the registry's
// declaration surface. The route prefix is the service's simple name; the
// contract identity is its fully qualified name.
func contractDefinition(svcDesc *desc.ServiceDescriptor, logger *slog.Logger) domain.ContractDefinition {
	def := domain.ContractDefinition{
		Service:    svcDesc.GetName(),
		Contract:   svcDesc.GetFullyQualifiedName(),
		Bridgeable: true,
	}

	for _, m := range svcDesc.GetMethods() {
		if m.IsClientStreaming() || m.IsServerStreaming() {
			logger.Debug("skipping streaming method",
				slog.String("method", m.GetFullyQualifiedName()))
			continue
		}

		op := domain.Operation{Name: m.GetName(), Returns: domain.KindNone}
		for _, fld := range m.GetInputType().GetFields() {
			op.Params = append(op.Params, domain.Parameter{
				Name:     fld.GetName(),
				Kind:     kindFromField(fld),
				Optional: fld.AsFieldDescriptorProto().GetProto3Optional(),
			})
		}
		if len(m.GetOutputType().GetFields()) > 0 {
			op.Returns = domain.KindObject
		}
		def.Operations = append(def.Operations, op)
	}

	return def
}

func kindFromField(fld *desc.FieldDescriptor) domain.Kind {
	if fld.IsMap() {
		return domain.KindObject
	}
	if fld.IsRepeated() {
		return domain.KindList
	}

	switch fld.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_BOOL:
		return domain.KindBool
	case descriptorpb.FieldDescriptorProto_TYPE_STRING:
		return domain.KindString
	case descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		return domain.KindBytes
	case descriptorpb.FieldDescriptorProto_TYPE_DOUBLE,
		descriptorpb.FieldDescriptorProto_TYPE_FLOAT:
		return domain.KindFloat
	case descriptorpb.FieldDescriptorProto_TYPE_INT32,
		descriptorpb.FieldDescriptorProto_TYPE_INT64,
		descriptorpb.FieldDescriptorProto_TYPE_UINT32,
		descriptorpb.FieldDescriptorProto_TYPE_UINT64,
		descriptorpb.FieldDescriptorProto_TYPE_SINT32,
		descriptorpb.FieldDescriptorProto_TYPE_SINT64,
		descriptorpb.FieldDescriptorProto_TYPE_FIXED32,
		descriptorpb.FieldDescriptorProto_TYPE_FIXED64,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED32,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED64:
		return domain.KindInt
	case descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		return domain.KindString
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE,
		descriptorpb.FieldDescriptorProto_TYPE_GROUP:
		if fld.GetMessageType().GetFullyQualifiedName() == "google.protobuf.Timestamp" {
			return domain.KindTime
		}
		return domain.KindObject
	default:
		return domain.KindObject
	}
}
