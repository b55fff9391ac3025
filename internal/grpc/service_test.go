package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ronappleton/studioflow/internal/config"
	"github.com/ronappleton/studioflow/internal/workflow"
)

func setup(t *testing.T) (*Client, string) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2024, time.August, 20, 9, 0, 0, 0, time.UTC)
	svc := workflow.NewService(workflow.ServiceOptions{Now: func() time.Time { return now }})
	admin := workflow.Actor{ID: "u_admin", Role: workflow.RoleAdmin, OrganizationID: "org_1"}

	tpl, err := svc.CreateTemplate(ctx, admin, workflow.Template{
		Name: "Portrait",
		Steps: []workflow.Step{
			{ID: "shoot", Title: "Shoot", EstimatedHours: 1},
			{ID: "edit", Title: "Edit", EstimatedHours: 2, Dependencies: []string{"shoot"}},
		},
	})
	require.NoError(t, err)
	start := workflow.NewDate(2024, time.September, 1)
	inst, err := svc.CreateInstance(ctx, admin, workflow.CreateInstanceRequest{TemplateID: tpl.ID, TrackingStartDate: &start})
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(NewHealth())
	cfg := config.Default()
	cfg.Organization.DefaultID = "org_1"
	RegisterProgressServer(srv, NewProgressService(svc, cfg))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn), inst.ID
}

func asUser(id, role string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "x-user-id", id, "x-user-role", role)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestTransitionStep(t *testing.T) {
	client, id := setup(t)
	ctx := asUser("u_editor", "editor")

	_, err := client.TransitionStep(ctx, mustStruct(t, map[string]any{"instance_id": id, "step_id": "edit", "status": "completed"}))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = client.TransitionStep(ctx, mustStruct(t, map[string]any{"instance_id": id}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.TransitionStep(ctx, mustStruct(t, map[string]any{"instance_id": "wf_missing", "step_id": "shoot", "status": "completed"}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	out, err := client.TransitionStep(ctx, mustStruct(t, map[string]any{"instance_id": id, "step_id": "shoot", "status": "completed"}))
	require.NoError(t, err)
	assert.Equal(t, 50.0, out.GetFields()["progress_percent"].GetNumberValue())
	assert.Equal(t, "edit", out.GetFields()["current_step_id"].GetStringValue())
}

func TestAssignStep(t *testing.T) {
	client, id := setup(t)
	req := mustStruct(t, map[string]any{"instance_id": id, "step_id": "edit", "assignee_id": "u_7"})

	_, err := client.AssignStep(asUser("u_editor", "editor"), req)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	out, err := client.AssignStep(asUser("u_mgr", "manager"), req)
	require.NoError(t, err)
	progress := out.GetFields()["workflow"].GetStructValue().GetFields()["step_progress"].GetStructValue()
	assert.Equal(t, "u_7", progress.GetFields()["edit"].GetStructValue().GetFields()["assigned_to"].GetStringValue())
}

func TestGetStats(t *testing.T) {
	client, _ := setup(t)
	out, err := client.GetStats(asUser("u_admin", "admin"), &structpb.Struct{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, out.GetFields()["total"].GetNumberValue())
	assert.Equal(t, 1.0, out.GetFields()["active"].GetNumberValue())

	out, err = client.GetStats(asUser("u_admin", "admin"), mustStruct(t, map[string]any{"status": "completed"}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.GetFields()["total"].GetNumberValue())
}

func TestHealthStartsNotServing(t *testing.T) {
	h := NewHealth()
	lis := bufconn.Listen(1 << 16)
	srv := NewServer(h)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	client := healthpb.NewHealthClient(conn)

	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ProgressServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	h.SetServingStatus(ProgressServiceName, healthpb.HealthCheckResponse_SERVING)
	resp, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ProgressServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{&workflow.UnknownTemplateKindError{Key: "boudoir"}, codes.InvalidArgument},
		{&workflow.ForbiddenError{Action: "assign steps", Role: workflow.RoleEditor}, codes.PermissionDenied},
		{&workflow.CycleDetectedError{StepIDs: []string{"a", "b"}}, codes.FailedPrecondition},
		{workflow.ErrDerivedStatus, codes.FailedPrecondition},
		{&workflow.PersistenceError{Op: "save", Err: workflow.ErrNotFound}, codes.Unavailable},
		{workflow.ErrNotFound, codes.NotFound},
		{context.DeadlineExceeded, codes.Internal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, status.Code(toStatus(tc.err)), tc.err.Error())
	}
}
