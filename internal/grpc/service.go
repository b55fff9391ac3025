package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ronappleton/studioflow/internal/config"
	"github.com/ronappleton/studioflow/internal/overview"
	"github.com/ronappleton/studioflow/internal/workflow"
)

const ProgressServiceName = "studioflow.v1.ProgressService"

// ProgressServer is the unary progress API. Messages are Structs carrying
// the same field names as the REST bodies.
type ProgressServer interface {
	TransitionStep(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AssignStep(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterProgressServer(s grpc.ServiceRegistrar, srv ProgressServer) {
	s.RegisterService(&progressServiceDesc, srv)
}

func unaryHandler(method string, call func(ProgressServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ProgressServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ProgressServiceName + "/" + method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ProgressServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var progressServiceDesc = grpc.ServiceDesc{
	ServiceName: ProgressServiceName,
	HandlerType: (*ProgressServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "TransitionStep", Handler: unaryHandler("TransitionStep", ProgressServer.TransitionStep)},
		{MethodName: "AssignStep", Handler: unaryHandler("AssignStep", ProgressServer.AssignStep)},
		{MethodName: "GetStats", Handler: unaryHandler("GetStats", ProgressServer.GetStats)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "studioflow/v1/progress.proto",
}

type ProgressService struct {
	svc        *workflow.Service
	defaultOrg string
}

func NewProgressService(svc *workflow.Service, cfg config.Config) *ProgressService {
	return &ProgressService{svc: svc, defaultOrg: cfg.Organization.DefaultID}
}

func (s *ProgressService) actor(ctx context.Context) workflow.Actor {
	md, _ := metadata.FromIncomingContext(ctx)
	first := func(key string) string {
		if v := md.Get(key); len(v) > 0 {
			return v[0]
		}
		return ""
	}
	a := workflow.Actor{
		ID:             first("x-user-id"),
		Role:           workflow.Role(first("x-user-role")),
		OrganizationID: first("x-organization-id"),
	}
	if a.OrganizationID == "" {
		a.OrganizationID = s.defaultOrg
	}
	return a
}

func field(in *structpb.Struct, name string) string {
	if v, ok := in.GetFields()[name]; ok {
		return v.GetStringValue()
	}
	return ""
}

func requireFields(in *structpb.Struct, names ...string) error {
	for _, n := range names {
		if field(in, n) == "" {
			return status.Errorf(codes.InvalidArgument, "%s is required", n)
		}
	}
	return nil
}

func (s *ProgressService) TransitionStep(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireFields(in, "instance_id", "step_id", "status"); err != nil {
		return nil, err
	}
	inst, err := s.svc.TransitionStep(ctx, s.actor(ctx), field(in, "instance_id"), field(in, "step_id"), workflow.StepStatus(field(in, "status")))
	if err != nil {
		return nil, toStatus(err)
	}
	return s.instanceStruct(ctx, inst)
}

func (s *ProgressService) AssignStep(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := requireFields(in, "instance_id", "step_id"); err != nil {
		return nil, err
	}
	inst, err := s.svc.AssignStep(ctx, s.actor(ctx), field(in, "instance_id"), field(in, "step_id"), field(in, "assignee_id"))
	if err != nil {
		return nil, toStatus(err)
	}
	return s.instanceStruct(ctx, inst)
}

// GetStats accepts the overview filter fields (status, school,
// session_type, date_range, search).
func (s *ProgressService) GetStats(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	snap, err := s.svc.Snapshot(ctx, s.actor(ctx).OrganizationID)
	if err != nil {
		return nil, toStatus(err)
	}
	e := overview.NewEngine(overview.FromSnapshot(snap), s.svc.Now())
	list := e.Filter(e.Workflows(), overview.Filters{
		Status:      field(in, "status"),
		School:      field(in, "school"),
		SessionType: field(in, "session_type"),
		DateRange:   overview.DateRange(field(in, "date_range")),
		Search:      field(in, "search"),
	})
	return toStruct(e.Stats(list))
}

func (s *ProgressService) instanceStruct(ctx context.Context, inst workflow.Instance) (*structpb.Struct, error) {
	out := map[string]any{"workflow": inst}
	if tpl, err := s.svc.GetTemplate(ctx, inst.TemplateID); err == nil {
		out["progress_percent"] = workflow.ComputeProgress(inst, tpl)
		if cur := workflow.CurrentStep(inst, tpl); cur != nil {
			out["current_step_id"] = cur.ID
		}
	}
	return toStruct(out)
}

// toStruct goes through JSON so field names match the REST surface.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return st, nil
}

func toStatus(err error) error {
	var (
		unknown   *workflow.UnknownTemplateKindError
		forbidden *workflow.ForbiddenError
		notFound  *workflow.StepNotFoundError
		cycle     *workflow.CycleDetectedError
		dep       *workflow.DependencyNotSatisfiedError
		persist   *workflow.PersistenceError
	)
	switch {
	case errors.As(err, &unknown), errors.Is(err, workflow.ErrInvalidStatus):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &forbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.As(err, &notFound), errors.As(err, &cycle), errors.As(err, &dep),
		errors.Is(err, workflow.ErrDerivedStatus), errors.Is(err, workflow.ErrTemplateInactive):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &persist):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, workflow.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
