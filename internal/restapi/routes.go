package restapi

import (
	"github.com/fnecore/corehost/internal/protoconst"
	"github.com/gin-gonic/gin"
)

// registerRoutes wires the endpoint taxonomy from spec.md §4.7. Every
// route but PUT /auth (registered by buildEngine before calling this)
// sits behind the bearer-token middleware.
func registerRoutes(r *gin.Engine, s *Server) {
	auth := s.requireToken()

	r.GET("/version", auth, s.handleVersion)
	r.GET("/status", auth, s.handleStatus)
	r.GET("/voice-ch", auth, s.handleVoiceChannels)

	r.PUT("/mode", auth, s.handleMode)
	r.PUT("/kill", auth, s.handleKill)
	r.PUT("/permit-tg", auth, s.handlePermitTG)
	r.PUT("/grant-tg", auth, s.handleGrantTG)
	r.PUT("/dmr-rid", auth, s.handleRID)
	r.PUT("/p25-rid", auth, s.handleRID)

	r.GET("/release-grants", auth, s.handleReleaseGrants)
	r.GET("/release-affs", auth, s.handleReleaseAffs)

	r.GET("/dmr-cc", auth, s.handleCCStatus(protoconst.ProtocolDMR))
	r.GET("/p25-cc", auth, s.handleCCStatus(protoconst.ProtocolP25))
	r.GET("/p25-cc-fallback", auth, s.handleCCStatus(protoconst.ProtocolP25))
	r.GET("/nxdn-cc", auth, s.handleCCStatus(protoconst.ProtocolNXDN))

	r.GET("/dmr-affs", auth, s.handleAffs(protoconst.ProtocolDMR))
	r.GET("/p25-affs", auth, s.handleAffs(protoconst.ProtocolP25))
	r.GET("/nxdn-affs", auth, s.handleAffs(protoconst.ProtocolNXDN))

	r.GET("/fne-peer-query", auth, s.handleFNEPeerQuery)
	r.PUT("/fne-peer-reset", auth, s.handleFNEPeerReset)
	r.PUT("/fne-peer-add", auth, s.handleFNEPeerAdd)
	r.PUT("/fne-peer-delete", auth, s.handleFNEPeerDelete)
	r.GET("/fne-aff-list", auth, s.handleFNEAffList)
	r.GET("/fne-rid-commit", auth, s.handleRIDCommit)
	r.GET("/fne-tgid-commit", auth, s.handleTGIDCommit)
	r.GET("/fne-peer-commit", auth, s.handlePeerCommit)
	r.GET("/fne-force-update", auth, s.handleForceUpdate)
	r.GET("/fne-reload-tgs", auth, s.handleReloadTable(s.tgRules.Swap))
	r.GET("/fne-reload-rids", auth, s.handleReloadTable(s.reloadRIDsTarget))

	r.GET("/auth/logout", auth, s.handleLogout)
}

// reloadRIDsTarget swaps the radio ACL of every configured site, since
// the subscriber-unit ACL is shared system-wide rather than scoped to
// one protocol.
func (s *Server) reloadRIDsTarget(decoded []byte) error {
	for _, b := range s.sites {
		if err := b.ACL.Swap(decoded); err != nil {
			return err
		}
	}
	return nil
}
