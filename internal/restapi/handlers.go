package restapi

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/fnecore/corehost/internal/lc/dmrlc"
	"github.com/fnecore/corehost/internal/lc/p25lc"
	"github.com/fnecore/corehost/internal/lookup"
	"github.com/fnecore/corehost/internal/protoconst"
	"github.com/gin-gonic/gin"
)

var (
	errUnsupportedRIDProtocol = errors.New("restapi: radio unit commands are not encoded for this protocol")
	errUnsupportedRIDCommand  = errors.New("restapi: radio unit command is not valid for this protocol")
)

// resolveBinding picks the SiteBinding a request targets: an explicit
// "protocol" field/query value, or the sole configured site if there is
// only one.
func (s *Server) resolveBinding(c *gin.Context, protoField string) (*SiteBinding, bool) {
	if protoField != "" {
		p, ok := protoconst.ParseProtocol(protoField)
		if !ok {
			writeError(c, http.StatusBadRequest, "unrecognized protocol")
			return nil, false
		}
		b, ok := s.binding(p)
		if !ok {
			writeError(c, http.StatusBadRequest, "protocol not configured on this host")
			return nil, false
		}
		return b, true
	}
	b, ok := s.soleBinding()
	if !ok {
		writeError(c, http.StatusBadRequest, "protocol must be specified when more than one site is configured")
		return nil, false
	}
	return b, true
}

type authRequest struct {
	Auth string `json:"auth"`
}

func (s *Server) handleAuth(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Auth == "" {
		writeError(c, http.StatusBadRequest, "auth field is required")
		return
	}
	if !s.tokens.verify(req.Auth) {
		writeError(c, http.StatusUnauthorized, "authentication failed")
		return
	}
	token, err := s.tokens.issue()
	if err != nil {
		writeError(c, http.StatusInternalServerError, "failed to issue token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "token": token})
}

func (s *Server) handleLogout(c *gin.Context) {
	s.tokens.revoke(c.GetHeader(authHeader))
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "message": "logged out"})
}

func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  http.StatusOK,
		"version": s.version,
		"commit":  s.commit,
		"uptime":  time.Since(s.start).String(),
	})
}

type siteStatus struct {
	Protocol         string `json:"protocol"`
	RFState          string `json:"rfState"`
	NetState         string `json:"netState"`
	LastRFTalkgroup  uint32 `json:"lastRFTalkgroup"`
	LastNetTalkgroup uint32 `json:"lastNetTalkgroup"`
	CCRunning        bool   `json:"ccRunning"`
	CCHalted         bool   `json:"ccHalted"`
}

func (s *Server) handleStatus(c *gin.Context) {
	out := make([]siteStatus, 0, len(s.sites))
	for proto, b := range s.sites {
		running, halted := b.Controller.CCStatus()
		out = append(out, siteStatus{
			Protocol:         proto.String(),
			RFState:          b.Controller.RFState().String(),
			NetState:         b.Controller.NetState().String(),
			LastRFTalkgroup:  b.Controller.LastRFTalkgroup(),
			LastNetTalkgroup: b.Controller.LastNetTalkgroup(),
			CCRunning:        running,
			CCHalted:         halted,
		})
	}
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "sites": out})
}

type voiceChannel struct {
	TalkgroupID uint32    `json:"talkgroupId"`
	Source      uint32    `json:"source"`
	ChannelID   uint16    `json:"channelId"`
	ChannelNo   uint32    `json:"channelNo"`
	Slot        uint8     `json:"slot"`
	Start       time.Time `json:"start"`
}

func (s *Server) handleVoiceChannels(c *gin.Context) {
	var out []voiceChannel
	for _, b := range s.sites {
		for _, g := range b.Registry.Grants() {
			out = append(out, voiceChannel{
				TalkgroupID: g.TalkgroupID,
				Source:      g.Source,
				ChannelID:   g.ChannelID,
				ChannelNo:   g.ChannelNo,
				Slot:        g.Slot,
				Start:       g.Start,
			})
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "channels": out})
}

type modeRequest struct {
	Protocol string `json:"protocol"`
}

// handleMode acknowledges a mode-switch request for a protocol's site.
// This host runs one independent Controller per configured protocol
// rather than time-sharing a single RF channel across modes, so there
// is no state to mutate; the endpoint exists for wire compatibility and
// reports the targeted site's current state.
func (s *Server) handleMode(c *gin.Context) {
	var req modeRequest
	_ = c.ShouldBindJSON(&req)
	b, ok := s.resolveBinding(c, req.Protocol)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   http.StatusOK,
		"protocol": b.Protocol.String(),
		"rfState":  b.Controller.RFState().String(),
	})
}

func (s *Server) handleKill(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "message": "shutting down"})
	if s.onKill != nil {
		go s.onKill()
	}
}

type permitTGRequest struct {
	Protocol string `json:"protocol"`
	DstID    uint32 `json:"dstId"`
}

func (s *Server) handlePermitTG(c *gin.Context) {
	var req permitTGRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	b, ok := s.resolveBinding(c, req.Protocol)
	if !ok {
		return
	}
	b.Controller.PermitTG(req.DstID)
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "dstId": req.DstID})
}

type grantTGRequest struct {
	Protocol string `json:"protocol"`
	Src      uint32 `json:"src"`
	Dst      uint32 `json:"dst"`
	Slot     uint8  `json:"slot"`
}

func (s *Server) handleGrantTG(c *gin.Context) {
	var req grantTGRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	b, ok := s.resolveBinding(c, req.Protocol)
	if !ok {
		return
	}
	grant, granted := b.Controller.GrantTG(req.Src, req.Dst, req.Slot)
	if !granted {
		writeError(c, http.StatusConflict, "channel pool exhausted or talkgroup already granted")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    http.StatusOK,
		"channelId": grant.ChannelID,
		"channelNo": grant.ChannelNo,
	})
}

// ridRequest carries the fixed vocabulary of sub-commands spec.md §4.7
// names for the /dmr-rid and /p25-rid endpoints: page, check, inhibit,
// uninhibit, dyn-regrp, gaq, ureg. Each is a subscriber-unit
// air-interface operation built into the DMR CSBK or P25 TSBK
// link-control frame internal/lc encodes; this host has no outbound RF
// modulator to key the channel with that frame, so the encoded wire
// bytes are returned to the caller and logged for correlation against
// the repeater's own transmitted traffic rather than emitted over the
// air directly.
type ridRequest struct {
	Protocol string `json:"protocol"`
	Command  string `json:"command"`
	RadioID  uint32 `json:"radioId"`
}

var validRIDCommands = map[string]bool{
	"page": true, "check": true, "inhibit": true, "uninhibit": true,
	"dyn-regrp": true, "gaq": true, "ureg": true,
}

func (s *Server) handleRID(c *gin.Context) {
	var req ridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validRIDCommands[req.Command] {
		writeError(c, http.StatusBadRequest, "unrecognized radio command")
		return
	}
	b, ok := s.resolveBinding(c, req.Protocol)
	if !ok {
		return
	}

	frame, err := encodeRIDCommand(b.Protocol, req.Command, req.RadioID)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	wire := hex.EncodeToString(frame)

	s.log.Info("radio unit command encoded", "command", req.Command, "radioId", req.RadioID, "protocol", req.Protocol, "frame", wire)
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "command": req.Command, "radioId": req.RadioID, "frame": wire})
}

// encodeRIDCommand builds the link-control frame a /dmr-rid or /p25-rid
// sub-command carries on the air: a DMR CSBK for DMR sites, a P25 TSBK
// for P25 sites.
func encodeRIDCommand(proto protoconst.Protocol, command string, radioID uint32) ([]byte, error) {
	switch proto {
	case protoconst.ProtocolDMR:
		return encodeDMRRIDCommand(command, radioID)
	case protoconst.ProtocolP25:
		return encodeP25RIDCommand(command, radioID)
	default:
		return nil, errUnsupportedRIDProtocol
	}
}

func encodeDMRRIDCommand(command string, radioID uint32) ([]byte, error) {
	csbk := dmrlc.CSBK{Target: radioID}
	switch command {
	case "page":
		csbk.Opcode = dmrlc.CSBKOCallAlert
	case "check":
		csbk.Opcode = dmrlc.CSBKORadioCheck
	case "inhibit":
		csbk.Opcode = dmrlc.CSBKOInhibit
	case "uninhibit":
		csbk.Opcode = dmrlc.CSBKOUninhibit
	case "dyn-regrp":
		csbk.Opcode = dmrlc.CSBKODynRegroup
	default:
		return nil, errUnsupportedRIDCommand
	}
	return dmrlc.EncodeCSBK(csbk), nil
}

func encodeP25RIDCommand(command string, radioID uint32) ([]byte, error) {
	tsbk := p25lc.TSBK{LastBlock: true, MFID: 0x00, TargetID: radioID}
	switch command {
	case "page":
		tsbk.Opcode = p25lc.TSBKCallAlert
	case "check":
		tsbk.Opcode = p25lc.TSBKRadioUnitMonitor
	case "inhibit":
		tsbk.Opcode = p25lc.TSBKExtendedFunction
		tsbk.Function = p25lc.ExtFuncInhibit
	case "uninhibit":
		tsbk.Opcode = p25lc.TSBKExtendedFunction
		tsbk.Function = p25lc.ExtFuncUninhibit
	case "dyn-regrp":
		tsbk.Opcode = p25lc.TSBKExtendedFunction
		tsbk.Function = p25lc.ExtFuncDynRegroup
	case "gaq":
		tsbk.Opcode = p25lc.TSBKGroupAffQuery
	case "ureg":
		tsbk.Opcode = p25lc.TSBKUnitRegistration
		tsbk.SourceID = radioID
	default:
		return nil, errUnsupportedRIDCommand
	}
	return p25lc.EncodeTSBK(tsbk), nil
}

func (s *Server) handleReleaseGrants(c *gin.Context) {
	total := 0
	for _, b := range s.sites {
		total += b.Registry.ReleaseAllGrants()
	}
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "released": total})
}

func (s *Server) handleReleaseAffs(c *gin.Context) {
	total := 0
	for _, b := range s.sites {
		total += b.Registry.DeaffiliateAll()
	}
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "released": total})
}

func (s *Server) handleCCStatus(proto protoconst.Protocol) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, ok := s.binding(proto)
		if !ok {
			writeError(c, http.StatusNotFound, "protocol not configured on this host")
			return
		}
		running, halted := b.Controller.CCStatus()
		c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "running": running, "halted": halted})
	}
}

func (s *Server) handleAffs(proto protoconst.Protocol) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, ok := s.binding(proto)
		if !ok {
			writeError(c, http.StatusNotFound, "protocol not configured on this host")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "affiliations": b.Registry.GrpAffTable()})
	}
}

func (s *Server) handleFNEPeerQuery(c *gin.Context) {
	if s.peers == nil {
		writeError(c, http.StatusNotFound, "peer network not enabled on this host")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "peers": s.peers.Peers()})
}

type fnePeerIDRequest struct {
	PeerID uint32 `json:"peerId"`
}

func (s *Server) handleFNEPeerReset(c *gin.Context) {
	s.disconnectFNEPeer(c)
}

func (s *Server) handleFNEPeerDelete(c *gin.Context) {
	s.disconnectFNEPeer(c)
}

func (s *Server) disconnectFNEPeer(c *gin.Context) {
	if s.peers == nil {
		writeError(c, http.StatusNotFound, "peer network not enabled on this host")
		return
	}
	var req fnePeerIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "peerId is required")
		return
	}
	if !s.peers.DisconnectPeer(req.PeerID) {
		writeError(c, http.StatusNotFound, "peer not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "peerId": req.PeerID})
}

// handleFNEPeerAdd is not implemented: peers in this architecture
// self-register through the RPTL/RPTK/RPTC handshake (internal/peernet)
// rather than being pre-provisioned by an operator, so there is no
// pending-peer table for this endpoint to insert into.
func (s *Server) handleFNEPeerAdd(c *gin.Context) {
	writeError(c, http.StatusNotImplemented, "peers self-register via the login handshake; pre-provisioning is not supported")
}

func (s *Server) handleFNEAffList(c *gin.Context) {
	out := make(map[string]map[uint32]uint32, len(s.sites))
	for proto, b := range s.sites {
		out[proto.String()] = b.Registry.GrpAffTable()
	}
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "affiliations": out})
}

// sizer is satisfied by the Memory* lookup implementations; the
// interfaces in internal/lookup deliberately omit Size since not every
// backing store need support it.
type sizer interface {
	Size() int
}

func (s *Server) handleRIDCommit(c *gin.Context) {
	count := -1
	if sz, ok := s.aclForDefaultSite().(sizer); ok {
		count = sz.Size()
	}
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "message": "radio ACL is applied immediately on every update; nothing is staged", "entries": count})
}

func (s *Server) handleTGIDCommit(c *gin.Context) {
	count := -1
	if sz, ok := s.tgRules.(sizer); ok {
		count = sz.Size()
	}
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "message": "talkgroup rules are applied immediately on every update; nothing is staged", "entries": count})
}

func (s *Server) handlePeerCommit(c *gin.Context) {
	count := 0
	if s.peers != nil {
		count = len(s.peers.Peers())
	}
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "peers": count})
}

func (s *Server) aclForDefaultSite() lookup.RadioACL {
	if b, ok := s.soleBinding(); ok {
		return b.ACL
	}
	for _, b := range s.sites {
		return b.ACL
	}
	return nil
}

// handleForceUpdate immediately runs each site registry's expiry sweep
// instead of waiting for its next clock tick, and reports how many
// grants/affiliations survived.
func (s *Server) handleForceUpdate(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	for _, b := range s.sites {
		b.Registry.Clock(ctx)
	}
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "message": "forced an immediate registry clock sweep on all sites"})
}

// handleReloadTable accepts a freshly decoded JSON table (the same
// payload shape Peer-Link bulk transfer delivers) and Swaps it into the
// named lookup immediately. The on-disk file itself is read by an
// external loader process (spec.md §1 non-goal); this endpoint is the
// REST-native alternative to pushing the same bytes over Peer-Link.
func (s *Server) handleReloadTable(swap func([]byte) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			writeError(c, http.StatusBadRequest, "failed to read request body")
			return
		}
		if len(body) == 0 {
			c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "message": "no body provided; external loader owns on-disk reload for this table"})
			return
		}
		if err := swap(body); err != nil {
			writeError(c, http.StatusBadRequest, "failed to decode table: "+err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "message": "table reloaded"})
	}
}
