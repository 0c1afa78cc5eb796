package peernet

import (
	"bytes"
	"compress/flate"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/fnecore/corehost/internal/config"
	"github.com/fnecore/corehost/internal/lookup"
	"github.com/fnecore/corehost/internal/protoconst"
	"github.com/fnecore/corehost/internal/pubsub"
	"github.com/fnecore/corehost/internal/queue"
	"github.com/fnecore/corehost/internal/site"
	"github.com/go-co-op/gocron/v2"
	"github.com/mitchellh/hashstructure/v2"
	"go.opentelemetry.io/otel"
)

const (
	loginHeaderLen   = 8 // tag[4] + peerID[4]
	rptkLen          = 8 + sha256.Size
	trafficHeaderLen = 11 // tag[4] + streamId[4] + rtpSeq[2] + peerIdLow[1]
	plnkBlockSize    = 4096
)

// ControllerSet resolves a protocol to the site Controller responsible
// for it, so the GRANT_REQ opcode (spec.md §4.6A's peer-initiated REST
// reflection) can call the same GrantTG method a REST handler would.
type ControllerSet map[protoconst.Protocol]*site.Controller

// Server is the peer-network UDP master: it accepts peer logins,
// authenticates them, tracks their session state, publishes inbound
// traffic onto the configured pub/sub bus, and assembles inbound
// Peer-Link bulk transfers. It does not subscribe to the bus and sends
// no traffic bursts out to peers.
type Server struct {
	log  *slog.Logger
	cfg  config.PeerNetwork
	bus  pubsub.PubSub
	ctrl ControllerSet
	acl  lookup.RadioACL
	tgRules lookup.TalkgroupRules

	packetKey []byte

	conn *net.UDPConn

	mu    sync.Mutex
	peers map[uint32]*Peer

	scheduler gocron.Scheduler
	queues    *queue.Set

	// OnActivityLine receives the text of every TRNS activity or
	// diagnostic frame as received, with the sending peer's id as a
	// separate argument; the text itself carries no prefix.
	OnActivityLine func(peerID uint32, line string)
}

// New builds a Server bound to the given pub/sub bus and site
// controllers. ctrl may be nil if this deployment carries no
// GRANT_REQ-capable site (peernet then only relays traffic and
// handshakes).
func New(log *slog.Logger, cfg config.PeerNetwork, bus pubsub.PubSub, ctrl ControllerSet, acl lookup.RadioACL, tgRules lookup.TalkgroupRules) (*Server, error) {
	key, err := resolvePacketKey(cfg)
	if err != nil {
		return nil, err
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("peernet: scheduler: %w", err)
	}
	return &Server{
		log:       log,
		cfg:       cfg,
		bus:       bus,
		ctrl:      ctrl,
		acl:       acl,
		tgRules:   tgRules,
		packetKey: key,
		peers:     make(map[uint32]*Peer),
		scheduler: sched,
		queues:    queue.NewSet(1 << 20),
	}, nil
}

// ListenAndServe opens the UDP socket and serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := &net.UDPAddr{IP: net.ParseIP(s.cfg.Bind), Port: s.cfg.Port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("peernet: listen %s: %w", addr, err)
	}
	s.conn = conn
	defer conn.Close()

	job, err := s.scheduler.NewJob(
		gocron.DurationJob(s.pingSweepInterval()),
		gocron.NewTask(s.sweepPings),
	)
	if err == nil {
		s.scheduler.Start()
		defer func() { _ = s.scheduler.RemoveJob(job.ID()) }()
	}

	s.log.Info("peer network listening", "bind", s.cfg.Bind, "port", s.cfg.Port)

	buf := make([]byte, 65536)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, remote, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn("peer network read error", "error", err)
			continue
		}
		data := append([]byte(nil), buf[:n]...)
		go s.handlePacket(ctx, remote, data)
	}
}

func (s *Server) pingSweepInterval() time.Duration {
	if s.cfg.PingInterval > 0 {
		return s.cfg.PingInterval
	}
	return 5 * time.Second
}

// Close releases the scheduler and socket.
func (s *Server) Close() error {
	_ = s.scheduler.Shutdown()
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Server) handlePacket(ctx context.Context, remote *net.UDPAddr, data []byte) {
	ctx, span := otel.Tracer("corehost").Start(ctx, "peernet.Server.handlePacket")
	defer span.End()

	if len(data) < 4 {
		return
	}
	tag := protoconst.Command(data[:4])
	switch tag {
	case protoconst.CommandRPTL:
		s.handleRPTL(remote, data)
	case protoconst.CommandRPTK:
		s.handleRPTK(remote, data)
	case protoconst.CommandRPTC:
		s.handleRPTC(remote, data)
	case protoconst.Command(protoconst.CommandRPTPING[:4]):
		s.handlePing(remote, data)
	case protoconst.CommandDMRD, protoconst.CommandP25D, protoconst.CommandNXDD:
		s.handleTraffic(ctx, remote, tag, data)
	case protoconst.CommandTRNS:
		s.handleTRNS(remote, data)
	case protoconst.CommandPLNK:
		s.handlePLNK(remote, data)
	case protoconst.CommandGRNT:
		s.handleGrantReq(ctx, remote, data)
	case protoconst.Command(protoconst.CommandMSTCL[:4]):
		s.handleDisconnect(remote, data)
	default:
		s.log.Debug("peer network unknown opcode", "tag", string(tag))
	}
}

func (s *Server) send(remote *net.UDPAddr, payload []byte) {
	if s.conn == nil {
		return
	}
	if _, err := s.conn.WriteToUDP(payload, remote); err != nil {
		s.log.Warn("peer network write error", "error", err, "remote", remote)
	}
}

// handleRPTL processes a login request: tag[4] + peerID[4]. A random
// 4-byte salt is generated and returned as the challenge (spec.md §4.6
// step 1-2).
func (s *Server) handleRPTL(remote *net.UDPAddr, data []byte) {
	if len(data) != loginHeaderLen {
		s.log.Warn("peer network invalid RPTL length", "length", len(data))
		return
	}
	peerID := binary.BigEndian.Uint32(data[4:8])

	var saltBytes [4]byte
	if _, err := rand.Read(saltBytes[:]); err != nil {
		s.log.Error("peer network failed to generate login salt", "error", err)
		return
	}
	salt := binary.BigEndian.Uint32(saltBytes[:])

	s.mu.Lock()
	peer := newPeer(peerID, remote.String())
	peer.salt = salt
	s.peers[peerID] = peer
	s.mu.Unlock()

	resp := append([]byte(protoconst.CommandRPTACK), saltBytes[:]...)
	s.send(remote, resp)
}

// handleRPTK verifies SHA256(salt || password) against the peer's
// claimed response: tag[4] + peerID[4] + sha256[32].
func (s *Server) handleRPTK(remote *net.UDPAddr, data []byte) {
	if len(data) != rptkLen {
		s.log.Warn("peer network invalid RPTK length", "length", len(data))
		return
	}
	peerID := binary.BigEndian.Uint32(data[4:8])
	peer := s.lookupPeer(peerID, remote)
	if peer == nil {
		s.send(remote, []byte(protoconst.CommandMSTNAK))
		return
	}

	if s.cfg.AuthMode == config.PeerAuthModeNone {
		peer.mu.Lock()
		peer.state = StateWaitConfig
		peer.mu.Unlock()
		s.send(remote, append([]byte(protoconst.CommandRPTACK), data[4:8]...))
		return
	}

	var saltBytes [4]byte
	binary.BigEndian.PutUint32(saltBytes[:], peer.salt)
	expected := sha256.Sum256(append(saltBytes[:], []byte(s.cfg.Password)...))
	if !bytes.Equal(expected[:], data[8:rptkLen]) {
		s.send(remote, []byte(protoconst.CommandMSTNAK))
		s.deletePeer(peerID)
		return
	}

	peer.mu.Lock()
	peer.state = StateWaitConfig
	peer.mu.Unlock()
	s.send(remote, append([]byte(protoconst.CommandRPTACK), data[4:8]...))
}

// handleRPTC parses the peer's JSON configuration payload: tag[4] +
// peerID[4] + JSON (spec.md §4.6 step 3 — identity, frequency, channel
// data, REST endpoint, feature flags).
func (s *Server) handleRPTC(remote *net.UDPAddr, data []byte) {
	if len(data) < loginHeaderLen {
		return
	}
	peerID := binary.BigEndian.Uint32(data[4:8])
	peer := s.lookupPeer(peerID, remote)
	if peer == nil {
		s.send(remote, []byte(protoconst.CommandMSTNAK))
		return
	}

	payload := data[loginHeaderLen:]
	if s.packetKey != nil {
		var err error
		payload, err = unwrapPacketKey(s.packetKey, payload)
		if err != nil {
			s.log.Warn("peer network failed to unwrap RPTC payload", "peer", peerID, "error", err)
			s.send(remote, []byte(protoconst.CommandMSTNAK))
			return
		}
	}

	var cfg PeerConfig
	if err := json.Unmarshal(payload, &cfg); err != nil {
		s.log.Warn("peer network invalid RPTC JSON", "peer", peerID, "error", err)
		s.send(remote, []byte(protoconst.CommandMSTNAK))
		return
	}

	peer.mu.Lock()
	peer.cfg = cfg
	peer.state = StateRunning
	peer.lastPing = time.Now()
	peer.promiscuous = s.cfg.Promiscuous
	peer.mu.Unlock()

	s.log.Info("peer connected", "peer", peerID, "callsign", cfg.Callsign)
	s.send(remote, append([]byte(protoconst.CommandRPTACK), data[4:8]...))
}

// pingTagLen and mstclTagLen account for the longer, collision-safe
// opcode tags ("RPTPING", "MSTCL") that the HBP-style dispatch in
// handlePacket matches on their first 4 bytes only.
const (
	pingTagLen = len(protoconst.CommandRPTPING)
	mstclTagLen = len(protoconst.CommandMSTCL)
)

func (s *Server) handlePing(remote *net.UDPAddr, data []byte) {
	if len(data) != pingTagLen+4 {
		return
	}
	peerIDOff := pingTagLen
	peerID := binary.BigEndian.Uint32(data[peerIDOff : peerIDOff+4])
	peer := s.lookupPeer(peerID, remote)
	if peer == nil {
		s.send(remote, []byte(protoconst.CommandMSTNAK))
		return
	}
	peer.mu.Lock()
	peer.lastPing = time.Now()
	peer.missedPings = 0
	peer.mu.Unlock()
	s.send(remote, append([]byte(protoconst.CommandMSTPONG), data[peerIDOff:peerIDOff+4]...))
}

func (s *Server) handleDisconnect(remote *net.UDPAddr, data []byte) {
	if len(data) < mstclTagLen+4 {
		return
	}
	peerID := binary.BigEndian.Uint32(data[mstclTagLen : mstclTagLen+4])
	if s.lookupPeer(peerID, remote) != nil {
		s.deletePeer(peerID)
	}
}

// sweepPings drops any running peer that has missed PingsMissed
// consecutive ping intervals (spec.md §4.6 step 4).
func (s *Server) sweepPings() {
	limit := s.cfg.PingsMissed
	if limit <= 0 {
		limit = 3
	}
	interval := s.pingSweepInterval()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, peer := range s.peers {
		peer.mu.Lock()
		if peer.state == StateRunning {
			if time.Since(peer.lastPing) > interval {
				peer.missedPings++
			}
			if peer.missedPings >= limit {
				peer.mu.Unlock()
				delete(s.peers, id)
				s.log.Warn("peer network dropped unresponsive peer", "peer", id, "missed", peer.missedPings)
				continue
			}
		}
		peer.mu.Unlock()
	}
}

// PeerInfo is a point-in-time snapshot of one peer session, for the
// REST control plane's fne-peer-query endpoint.
type PeerInfo struct {
	ID          uint32
	Addr        string
	State       SessionState
	Config      PeerConfig
	LastPing    time.Time
	MissedPings int
}

// Peers returns a snapshot of every currently tracked peer session.
func (s *Server) Peers() []PeerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PeerInfo, 0, len(s.peers))
	for _, p := range s.peers {
		p.mu.Lock()
		out = append(out, PeerInfo{
			ID:          p.ID,
			Addr:        p.Addr,
			State:       p.state,
			Config:      p.cfg,
			LastPing:    p.lastPing,
			MissedPings: p.missedPings,
		})
		p.mu.Unlock()
	}
	return out
}

// DisconnectPeer tears down a peer session by id, for the REST control
// plane's fne-peer-reset/fne-peer-delete endpoints. It reports whether
// a peer with that id was present.
func (s *Server) DisconnectPeer(id uint32) bool {
	s.mu.Lock()
	_, ok := s.peers[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.deletePeer(id)
	return true
}

func (s *Server) lookupPeer(id uint32, remote *net.UDPAddr) *Peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	peer, ok := s.peers[id]
	if !ok {
		return nil
	}
	if !peer.promiscuous && peer.Addr != "" && peer.Addr != remote.String() {
		s.log.Warn("peer network address mismatch", "peer", id, "got", remote.String(), "want", peer.Addr)
		return nil
	}
	return peer
}

func (s *Server) deletePeer(id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.peers, id)
	s.queues.Delete(fmt.Sprintf("peer-%d", id))
}

// handleTraffic forwards an inbound DMRD/P25D/NXDD burst onto the
// pub/sub bus keyed by protocol tag, and assigns/advances the stream's
// RTP sequence (spec.md §4.6 "Stream IDs", §5's RF-receive-order
// guarantee).
func (s *Server) handleTraffic(ctx context.Context, remote *net.UDPAddr, tag protoconst.Command, data []byte) {
	if len(data) < trafficHeaderLen {
		return
	}
	streamID := binary.BigEndian.Uint32(data[4:8])
	rtpSeq := binary.BigEndian.Uint16(data[8:10])

	s.mu.Lock()
	var origin *Peer
	for _, p := range s.peers {
		if p.Addr == remote.String() {
			origin = p
			break
		}
	}
	s.mu.Unlock()
	if origin == nil {
		return
	}

	if rtpSeq == protoconst.RTPEndOfCallSeq {
		origin.endStream(streamID)
	} else {
		binary.BigEndian.PutUint16(data[8:10], origin.nextStreamSeq(streamID))
	}

	if s.bus != nil {
		_ = s.bus.Publish(string(tag), data)
	}
}

// handleGrantReq implements the peer-initiated REST reflection
// supplement (spec.md §4.6A): a GRNT opcode from a peer is handled
// identically to a REST PUT /grant-tg, by calling the same
// SiteController.GrantTG method.
func (s *Server) handleGrantReq(ctx context.Context, remote *net.UDPAddr, data []byte) {
	if len(data) < trafficHeaderLen+9 {
		return
	}
	proto := protoconst.Protocol(data[trafficHeaderLen])
	src := binary.BigEndian.Uint32(data[trafficHeaderLen+1:])
	dst := binary.BigEndian.Uint32(data[trafficHeaderLen+5:])
	slot := data[trafficHeaderLen+9]

	ctrl, ok := s.ctrl[proto]
	if !ok || ctrl == nil {
		s.log.Warn("peer network GRANT_REQ for unconfigured protocol", "protocol", proto)
		return
	}
	_, granted := ctrl.GrantTG(src, dst, slot)
	s.log.Debug("peer network GRANT_REQ", "src", src, "dst", dst, "granted", granted)
}

// handleTRNS hands an activity or diagnostic log line from a peer to
// OnActivityLine together with the peer id (spec.md §4.6
// "Activity/diagnostic forwarding"). The text is passed on as received;
// no peer id or identity prefix is added to it.
func (s *Server) handleTRNS(remote *net.UDPAddr, data []byte) {
	if len(data) < loginHeaderLen+1 {
		return
	}
	peerID := binary.BigEndian.Uint32(data[4:8])
	kind := protoconst.TransferKind(data[8])
	text := string(data[9:])

	if kind != protoconst.TransferActivity && kind != protoconst.TransferDiagnostic {
		return
	}
	if s.OnActivityLine != nil {
		s.OnActivityLine(peerID, text)
	}
}

// handlePLNK accumulates one block of an inbound Peer-Link bulk
// transfer (spec.md §4.6 "Peer-Link bulk transfer").
func (s *Server) handlePLNK(remote *net.UDPAddr, data []byte) {
	const plnkHeaderLen = loginHeaderLen + 1 + 4 + 4 + 1 + 1 // peerID + subopcode + uSize + cSize + idx + count
	if len(data) < plnkHeaderLen {
		return
	}
	peerID := binary.BigEndian.Uint32(data[4:8])
	peer := s.lookupPeer(peerID, remote)
	if peer == nil {
		return
	}
	kind := protoconst.PeerLinkKind(data[8])
	uncompressedSize := binary.BigEndian.Uint32(data[9:13])
	compressedSize := binary.BigEndian.Uint32(data[13:17])
	blockIdx := data[17]
	blockCnt := data[18]
	block := data[19:]

	peer.mu.Lock()
	acc, ok := peer.transfers[kind]
	if !ok {
		acc = newBulkAccumulator(uncompressedSize, compressedSize, blockCnt)
		peer.transfers[kind] = acc
	}
	acc.addBlock(blockIdx, block)
	done := acc.complete()
	var liveHash uint64
	if done {
		liveHash = peer.liveTableHash[kind]
	}
	peer.mu.Unlock()

	if !done {
		return
	}

	inflated, err := acc.inflate()
	if err != nil {
		s.log.Warn("peer network Peer-Link inflate failed", "peer", peerID, "kind", kind, "error", err)
		peer.mu.Lock()
		delete(peer.transfers, kind)
		peer.mu.Unlock()
		return
	}

	newHash, err := hashstructure.Hash(inflated, hashstructure.FormatV2, nil)
	if err != nil {
		s.log.Warn("peer network Peer-Link hash failed", "peer", peerID, "kind", kind, "error", err)
	}

	peer.mu.Lock()
	delete(peer.transfers, kind)
	peer.mu.Unlock()

	if err == nil && newHash == liveHash {
		s.log.Debug("peer network Peer-Link transfer matches live table, skipping swap", "peer", peerID, "kind", kind)
		return
	}

	if err := s.swapLookup(kind, inflated); err != nil {
		s.log.Warn("peer network Peer-Link swap failed", "peer", peerID, "kind", kind, "error", err)
		return
	}

	if err == nil {
		peer.mu.Lock()
		peer.liveTableHash[kind] = newHash
		peer.mu.Unlock()
	}
}

func (s *Server) swapLookup(kind protoconst.PeerLinkKind, decoded []byte) error {
	switch kind {
	case protoconst.PeerLinkTalkgroupList:
		if s.tgRules == nil {
			return nil
		}
		return s.tgRules.Swap(decoded)
	case protoconst.PeerLinkRIDList:
		if s.acl == nil {
			return nil
		}
		return s.acl.Swap(decoded)
	default:
		return fmt.Errorf("peernet: unknown Peer-Link kind %d", kind)
	}
}

// bulkAccumulator assembles a Peer-Link transfer's blocks in order and
// inflates the result once every block has arrived (spec.md §3's
// "BulkTransferAccumulator").
type bulkAccumulator struct {
	uncompressedSize uint32
	compressedSize   uint32
	blockCount       uint8
	blocks           map[uint8][]byte
}

func newBulkAccumulator(uSize, cSize uint32, blockCount uint8) *bulkAccumulator {
	return &bulkAccumulator{
		uncompressedSize: uSize,
		compressedSize:   cSize,
		blockCount:       blockCount,
		blocks:           make(map[uint8][]byte),
	}
}

func (b *bulkAccumulator) addBlock(idx uint8, data []byte) {
	stored := append([]byte(nil), data...)
	b.blocks[idx] = stored
}

func (b *bulkAccumulator) complete() bool {
	return uint8(len(b.blocks)) >= b.blockCount+1
}

// inflate concatenates the accumulated blocks in order and runs them
// through a raw deflate reader, verifying the declared uncompressed
// length (testable property 9).
func (b *bulkAccumulator) inflate() ([]byte, error) {
	var compressed bytes.Buffer
	for i := uint8(0); i <= b.blockCount; i++ {
		block, ok := b.blocks[i]
		if !ok {
			return nil, fmt.Errorf("peernet: missing Peer-Link block %d of %d", i, b.blockCount)
		}
		compressed.Write(block)
	}

	r := flate.NewReader(&compressed)
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("peernet: inflate: %w", err)
	}
	if uint32(len(out)) != b.uncompressedSize {
		return nil, fmt.Errorf("peernet: inflated length %d does not match declared %d", len(out), b.uncompressedSize)
	}
	return out, nil
}

// EncodeBlocks deflates payload and cuts it into plnkBlockSize-byte
// Peer-Link blocks ready to send, the inverse of bulkAccumulator
// (spec.md §4.6, §6 "Peer-Link block frame").
func EncodeBlocks(payload []byte) (blocks [][]byte, uncompressedSize, compressedSize uint32, err error) {
	var compressed bytes.Buffer
	w, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	if err != nil {
		return nil, 0, 0, err
	}
	if _, err := w.Write(payload); err != nil {
		return nil, 0, 0, err
	}
	if err := w.Close(); err != nil {
		return nil, 0, 0, err
	}

	data := compressed.Bytes()
	for off := 0; off < len(data); off += plnkBlockSize {
		end := off + plnkBlockSize
		if end > len(data) {
			end = len(data)
		}
		blocks = append(blocks, data[off:end])
	}
	if len(blocks) == 0 {
		blocks = [][]byte{{}}
	}
	return blocks, uint32(len(payload)), uint32(len(data)), nil
}
