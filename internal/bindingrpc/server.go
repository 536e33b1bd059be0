package bindingrpc

import (
	"context"
	"errors"
	"io/fs"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/bmvandoren/vol2bird/internal/attrs"
	"github.com/bmvandoren/vol2bird/internal/binding"
	"github.com/bmvandoren/vol2bird/internal/config"
	"github.com/bmvandoren/vol2bird/internal/db"
	"github.com/bmvandoren/vol2bird/internal/engine"
	"github.com/bmvandoren/vol2bird/internal/fsutil"
	"github.com/bmvandoren/vol2bird/internal/monitoring"
	"github.com/bmvandoren/vol2bird/internal/profile"
	"github.com/bmvandoren/vol2bird/internal/security"
	"github.com/bmvandoren/vol2bird/internal/volume"
)

// Ensure Server implements the service interface.
var _ BindingServer = (*Server)(nil)

// session is one open handle. mu serialises every call on it, since the
// wrapper and its engine handle are not safe for concurrent use.
type session struct {
	mu      sync.Mutex
	file    *volume.File
	wrapper *binding.Vol2Bird
}

// Server holds binding sessions keyed by an opaque handle string.
type Server struct {
	backend engine.Backend
	fsys    fsutil.FileSystem
	cfg     *config.Config
	metrics *monitoring.Metrics
	archive *db.DB
	root    string

	mu       sync.Mutex
	sessions map[string]*session
}

// Option configures NewServer.
type Option func(*Server)

// WithConfig loads cfg into every new session.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) { s.cfg = cfg }
}

// WithMetrics records binding metrics into m.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithArchive stores every computed profile in archive.
func WithArchive(archive *db.DB) Option {
	return func(s *Server) { s.archive = archive }
}

// WithRoot confines request paths to the directory tree under root.
// Relative paths are resolved against it.
func WithRoot(root string) Option {
	return func(s *Server) { s.root = root }
}

// NewServer creates a Binding server that opens volumes from fsys.
func NewServer(backend engine.Backend, fsys fsutil.FileSystem, opts ...Option) *Server {
	s := &Server{
		backend:  backend,
		fsys:     fsys,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New opens the volume at path and sets up a session for it.
func (s *Server) New(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	path := in.GetFields()[FieldPath].GetStringValue()
	if path == "" {
		return nil, status.Error(codes.InvalidArgument, "path is required")
	}
	if s.root != "" {
		confined, err := security.Confine(path, s.root)
		if err != nil {
			return nil, toStatus(err)
		}
		path = confined
	}

	f, err := volume.Open(s.fsys, path)
	if err != nil {
		return nil, toStatus(err)
	}

	opts := []binding.Option{binding.WithConfig(s.cfg)}
	if s.metrics != nil {
		opts = append(opts, binding.WithMetrics(s.metrics))
	}
	w, err := binding.New(s.backend, f.Object(), opts...)
	if err != nil {
		f.Release()
		return nil, toStatus(err)
	}

	handle := uuid.NewString()
	s.mu.Lock()
	s.sessions[handle] = &session{file: f, wrapper: w}
	s.mu.Unlock()

	monitoring.Logf("[rpc] session %s opened for %s", handle, f.Path())
	return structpb.NewStruct(map[string]any{
		FieldHandle:     handle,
		FieldObjectType: f.ObjectType().String(),
		FieldSource:     w.Volume().Source(),
	})
}

// Vol2Bird computes the profile of a session.
func (s *Server) Vol2Bird(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.lookup(in)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	vp, err := sess.wrapper.Vol2Bird()
	if err != nil {
		return nil, toStatus(err)
	}
	if s.archive != nil {
		runID, err := s.archive.RecordProfile(ctx, vp, sess.file.Path())
		if err != nil {
			monitoring.Logf("[rpc] failed to archive profile: %v", err)
		} else {
			monitoring.Logf("[rpc] archived run %s", runID)
		}
	}
	return profileStruct(vp)
}

// GetAttr reads a named engine constant.
func (s *Server) GetAttr(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.lookup(in)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	v, err := sess.wrapper.GetAttr(in.GetFields()[FieldName].GetStringValue())
	sess.mu.Unlock()
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{FieldValue: v})
}

// SetAttr writes a named engine constant. Numbers arrive as doubles and
// integer attributes truncate them.
func (s *Server) SetAttr(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.lookup(in)
	if err != nil {
		return nil, err
	}
	value, ok := in.GetFields()[FieldValue]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "value is required")
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.wrapper.SetAttr(in.GetFields()[FieldName].GetStringValue(), value.AsInterface()); err != nil {
		return nil, toStatus(err)
	}
	return &structpb.Struct{}, nil
}

// Close ends a session and releases its engine handle.
func (s *Server) Close(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	handle := in.GetFields()[FieldHandle].GetStringValue()
	s.mu.Lock()
	sess, ok := s.sessions[handle]
	delete(s.sessions, handle)
	s.mu.Unlock()
	if !ok {
		return nil, status.Errorf(codes.NotFound, "unknown session %q", handle)
	}
	sess.close()
	monitoring.Logf("[rpc] session %s closed", handle)
	return &structpb.Struct{}, nil
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown closes every open session.
func (s *Server) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.close()
	}
}

func (s *Server) lookup(in *structpb.Struct) (*session, error) {
	handle := in.GetFields()[FieldHandle].GetStringValue()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[handle]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "unknown session %q", handle)
	}
	return sess, nil
}

func (sess *session) close() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.wrapper.Close()
	sess.file.Release()
}

// toStatus maps the binding error taxonomy onto gRPC codes.
func toStatus(err error) error {
	code := codes.Unknown
	switch {
	case errors.Is(err, attrs.ErrUnknownAttribute), errors.Is(err, fs.ErrNotExist):
		code = codes.NotFound
	case errors.Is(err, attrs.ErrTypeMismatch),
		errors.Is(err, binding.ErrNotPolarVolume),
		errors.Is(err, engine.ErrSetupFailed),
		errors.Is(err, engine.ErrConfigLoad),
		errors.Is(err, volume.ErrMalformed):
		code = codes.InvalidArgument
	case errors.Is(err, engine.ErrAllocationFailed):
		code = codes.ResourceExhausted
	case errors.Is(err, engine.ErrComputeFailed):
		code = codes.Internal
	case errors.Is(err, engine.ErrReleased):
		code = codes.FailedPrecondition
	case errors.Is(err, security.ErrOutsideRoot):
		code = codes.PermissionDenied
	}
	return status.Error(code, err.Error())
}

func profileStruct(vp *profile.VerticalProfile) (*structpb.Struct, error) {
	summary := vp.Summary()
	layers := make([]any, 0, vp.Len())
	for _, l := range vp.Layers() {
		layers = append(layers, map[string]any{
			"height_bottom": number(l.HeightBottom),
			"height_top":    number(l.HeightTop),
			"height":        number(l.Height),
			"u":             number(l.U),
			"v":             number(l.V),
			"w":             number(l.W),
			"speed":         number(l.Speed),
			"direction":     number(l.Direction),
			"direction_all": number(l.DirectionAll),
			"gap":           l.Gap,
			"stddev":        number(l.StdDev),
			"eta":           number(l.Eta),
			"dbz":           number(l.Dbz),
			"density":       number(l.Density),
			"n_points":      number(l.NPoints),
			"density_all":   number(l.DensityAll),
			"dbz_all":       number(l.DbzAll),
			"n_points_all":  number(l.NPointsAll),
		})
	}
	return structpb.NewStruct(map[string]any{
		FieldSource: vp.Metadata.Source,
		FieldDate:   vp.Metadata.Date,
		FieldTime:   vp.Metadata.Time,
		FieldRows:   vp.Bio().Rows(),
		FieldCols:   vp.Bio().Cols(),
		FieldBio:    numbers(vp.Bio().Data()),
		FieldAll:    numbers(vp.All().Data()),
		FieldLayers: layers,
		FieldSummary: map[string]any{
			"vid":    number(summary.VID),
			"mtr":    number(summary.MTR),
			"layers": summary.Layers,
		},
	})
}

func numbers(data []float64) []any {
	out := make([]any, len(data))
	for i, v := range data {
		out[i] = number(v)
	}
	return out
}

// number maps missing values to null.
func number(v float64) any {
	if profile.Cell(v).Missing() {
		return nil
	}
	return v
}
