package sal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	busServiceName  = "opsim.sal.v1.Bus"
	publishMethod   = "/" + busServiceName + "/Publish"
	subscribeMethod = "/" + busServiceName + "/Subscribe"
)

// busServiceServer is the broker side of the Bus service. Envelopes and
// subscribe requests travel as google.protobuf.Struct.
type busServiceServer interface {
	Publish(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Subscribe(*structpb.Struct, grpc.ServerStream) error
}

func publishHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(busServiceServer).Publish(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: publishMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(busServiceServer).Publish(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(busServiceServer).Subscribe(in, stream)
}

var busServiceDesc = grpc.ServiceDesc{
	ServiceName: busServiceName,
	HandlerType: (*busServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Publish", Handler: publishHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
	Metadata: "opsim/sal/v1/bus.proto",
}

// envelope field names
const (
	fieldID      = "id"
	fieldTopic   = "topic"
	fieldKind    = "kind"
	fieldSent    = "sent"
	fieldPayload = "payload"
	fieldTopics  = "topics"
	fieldReady   = "ready"
)

func toEnvelope(msg Message) (*structpb.Struct, error) {
	payload := &structpb.Struct{}
	if len(msg.Payload) > 0 {
		if err := protojson.Unmarshal(msg.Payload, payload); err != nil {
			return nil, fmt.Errorf("topic %s payload is not a JSON object: %w", msg.Topic, err)
		}
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldID:      structpb.NewStringValue(msg.ID),
		fieldTopic:   structpb.NewStringValue(msg.Topic),
		fieldKind:    structpb.NewStringValue(string(msg.Kind)),
		fieldSent:    structpb.NewStringValue(msg.Sent.UTC().Format(time.RFC3339Nano)),
		fieldPayload: structpb.NewStructValue(payload),
	}}, nil
}

func fromEnvelope(env *structpb.Struct) (Message, error) {
	f := env.GetFields()
	msg := Message{
		ID:    f[fieldID].GetStringValue(),
		Topic: f[fieldTopic].GetStringValue(),
		Kind:  Kind(f[fieldKind].GetStringValue()),
	}
	if msg.Topic == "" {
		return Message{}, errors.New("envelope has no topic")
	}
	if sent, err := time.Parse(time.RFC3339Nano, f[fieldSent].GetStringValue()); err == nil {
		msg.Sent = sent
	}
	payload := f[fieldPayload].GetStructValue()
	if payload == nil {
		payload = &structpb.Struct{}
	}
	data, err := protojson.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	msg.Payload = data
	return msg, nil
}

// BusServer is the gRPC broker that driver and scheduler both connect to.
// It fans messages out through an in-process MemoryBus.
type BusServer struct {
	bus *MemoryBus
	log *slog.Logger
}

// NewBusServer creates a broker
func NewBusServer(log *slog.Logger) *BusServer {
	return &BusServer{bus: NewMemoryBus(), log: logger.OrDefault(log)}
}

// Register adds the Bus service to a gRPC server
func (s *BusServer) Register(gs *grpc.Server) {
	gs.RegisterService(&busServiceDesc, s)
}

// Serve runs a gRPC server on lis until ctx is done
func (s *BusServer) Serve(ctx context.Context, lis net.Listener) error {
	gs := grpc.NewServer()
	s.Register(gs)
	s.log.Info("bus broker listening", "addr", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- gs.Serve(lis) }()

	select {
	case <-ctx.Done():
		s.bus.Close()
		gs.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

// Publish implements the unary Publish method
func (s *BusServer) Publish(ctx context.Context, env *structpb.Struct) (*emptypb.Empty, error) {
	msg, err := fromEnvelope(env)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.bus.Publish(ctx, msg); err != nil {
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	s.log.Debug("bus publish", "topic", msg.Topic, "kind", msg.Kind)
	return &emptypb.Empty{}, nil
}

// Subscribe implements the server-streaming Subscribe method. The first
// frame sent is a ready marker once the mailbox is registered.
func (s *BusServer) Subscribe(req *structpb.Struct, stream grpc.ServerStream) error {
	var topics []string
	for _, v := range req.GetFields()[fieldTopics].GetListValue().GetValues() {
		if t := v.GetStringValue(); t != "" {
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 {
		return status.Error(codes.InvalidArgument, "topics are required")
	}

	ctx := stream.Context()
	sub, err := s.bus.Subscribe(ctx, topics...)
	if err != nil {
		return status.Error(codes.Unavailable, err.Error())
	}
	defer sub.Close()

	ready := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldReady: structpb.NewBoolValue(true),
		fieldID:    structpb.NewStringValue(sub.ID),
	}}
	if err := stream.SendMsg(ready); err != nil {
		return err
	}
	s.log.Debug("bus subscriber attached", "subscriber", sub.ID, "topics", topics)

	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrBusClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		env, err := toEnvelope(msg)
		if err != nil {
			s.log.Warn("dropping undeliverable message", "topic", msg.Topic, "error", err)
			continue
		}
		if err := stream.SendMsg(env); err != nil {
			return err
		}
	}
}

// GRPCBus is a Bus client talking to a BusServer
type GRPCBus struct {
	conn *grpc.ClientConn
	log  *slog.Logger

	mu     sync.Mutex
	subs   map[string]context.CancelFunc
	closed bool
}

// DialGRPCBus connects to a broker at addr. Extra options are appended after
// insecure transport credentials.
func DialGRPCBus(addr string, log *slog.Logger, opts ...grpc.DialOption) (*GRPCBus, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial bus broker %s: %w", addr, err)
	}
	return &GRPCBus{conn: conn, log: logger.OrDefault(log), subs: make(map[string]context.CancelFunc)}, nil
}

// Publish sends msg to the broker
func (b *GRPCBus) Publish(ctx context.Context, msg Message) error {
	if b.isClosed() {
		return ErrBusClosed
	}
	if msg.Sent.IsZero() {
		msg.Sent = time.Now().UTC()
	}
	env, err := toEnvelope(msg)
	if err != nil {
		return err
	}
	return b.conn.Invoke(ctx, publishMethod, env, new(emptypb.Empty))
}

// Subscribe opens a stream for topics and returns once the broker has
// registered it.
func (b *GRPCBus) Subscribe(ctx context.Context, topics ...string) (*Subscription, error) {
	if b.isClosed() {
		return nil, ErrBusClosed
	}
	values := make([]any, len(topics))
	for i, t := range topics {
		values[i] = t
	}
	req, err := structpb.NewStruct(map[string]any{fieldTopics: values})
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	stream, err := b.conn.NewStream(streamCtx, &busServiceDesc.Streams[0], subscribeMethod)
	if err != nil {
		cancel()
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		cancel()
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		cancel()
		return nil, err
	}

	first := new(structpb.Struct)
	recv := make(chan error, 1)
	go func() { recv <- stream.RecvMsg(first) }()
	select {
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	case err := <-recv:
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to subscribe to %v: %w", topics, err)
		}
	}

	sub := newSubscription(topics)
	if id := first.GetFields()[fieldID].GetStringValue(); id != "" {
		sub.ID = id
	}
	sub.onStop = func() {
		cancel()
		b.mu.Lock()
		delete(b.subs, sub.ID)
		b.mu.Unlock()
	}

	b.mu.Lock()
	b.subs[sub.ID] = cancel
	b.mu.Unlock()

	go b.receive(stream, sub)
	return sub, nil
}

func (b *GRPCBus) receive(stream grpc.ClientStream, sub *Subscription) {
	defer sub.Close()
	for {
		env := new(structpb.Struct)
		if err := stream.RecvMsg(env); err != nil {
			if err != io.EOF && status.Code(err) != codes.Canceled {
				b.log.Warn("bus stream ended", "subscriber", sub.ID, "error", err)
			}
			return
		}
		msg, err := fromEnvelope(env)
		if err != nil {
			b.log.Warn("dropping malformed envelope", "subscriber", sub.ID, "error", err)
			continue
		}
		sub.deliver(msg)
	}
}

func (b *GRPCBus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Close cancels every stream and the connection
func (b *GRPCBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, cancel := range b.subs {
		cancel()
	}
	b.subs = nil
	b.mu.Unlock()
	return b.conn.Close()
}
