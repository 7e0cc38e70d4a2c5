package server

import (
	"net"
	"net/http"

	"github.com/raysh454/shieldsuite/internal/device"
	"github.com/raysh454/shieldsuite/internal/logging"
)

// VPN

func (s *Server) handleVPNStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orchestrator.VPN().Status(r.Context()))
}

func (s *Server) handleVPNConnect(w http.ResponseWriter, r *http.Request) {
	st, err := s.orchestrator.VPN().Connect(r.Context())
	if err != nil {
		s.fail(w, "connecting vpn", err)
		return
	}
	s.logger.Info("vpn connected", logging.Field{Key: "server", Value: st.CurrentServer})
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleVPNDisconnect(w http.ResponseWriter, r *http.Request) {
	st, err := s.orchestrator.VPN().Disconnect(r.Context())
	if err != nil {
		s.fail(w, "disconnecting vpn", err)
		return
	}
	s.logger.Info("vpn disconnected")
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleBlockDomain(w http.ResponseWriter, r *http.Request) {
	var body DomainRequest
	if !s.decode(w, r, "block domain", &body) {
		return
	}
	st, err := s.orchestrator.VPN().BlockDomain(r.Context(), body.Domain)
	if err != nil {
		s.fail(w, "blocking domain", err, logging.Field{Key: "domain", Value: body.Domain})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleUnblockDomain(w http.ResponseWriter, r *http.Request) {
	var body DomainRequest
	if !s.decode(w, r, "unblock domain", &body) {
		return
	}
	st, err := s.orchestrator.VPN().UnblockDomain(r.Context(), body.Domain)
	if err != nil {
		s.fail(w, "unblocking domain", err, logging.Field{Key: "domain", Value: body.Domain})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleBlockedDomains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"domains": s.orchestrator.VPN().BlockedDomains(r.Context())})
}

// Device

func (s *Server) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orchestrator.Monitor().SystemInfo())
}

func (s *Server) handleDeviceHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orchestrator.Monitor().Health())
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	m := s.orchestrator.Monitor().Optimize()
	s.logger.Info("device optimized")
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	info, err := device.Network()
	if err != nil {
		s.fail(w, "reading network interfaces", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// clientIP returns the request's remote address without its port. RealIP
// has already applied X-Forwarded-For / X-Real-IP.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orchestrator.Location().Current(clientIP(r)))
}

func (s *Server) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	var body LocationRequest
	if !s.decode(w, r, "update location", &body) {
		return
	}
	loc, err := s.orchestrator.Location().Update(body.Latitude, body.Longitude)
	if err != nil {
		s.fail(w, "updating location", err)
		return
	}
	s.logger.Info("location updated")
	writeJSON(w, http.StatusOK, map[string]any{"status": "location updated", "location": loc})
}

func (s *Server) handleRemoteWipe(w http.ResponseWriter, r *http.Request) {
	var body ConfirmationRequest
	if !s.decode(w, r, "remote wipe", &body) {
		return
	}
	if err := s.orchestrator.Device().RemoteWipe(r.Context(), body.ConfirmationCode); err != nil {
		s.fail(w, "remote wipe", err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "remote wipe initiated"})
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	var body PINRequest
	if !s.decode(w, r, "lock device", &body) {
		return
	}
	if err := s.orchestrator.Device().Lock(r.Context(), body.PIN); err != nil {
		s.fail(w, "locking device", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Device locked successfully"})
}

func (s *Server) handleWipe(w http.ResponseWriter, r *http.Request) {
	var body ConfirmationRequest
	if !s.decode(w, r, "wipe device", &body) {
		return
	}
	if err := s.orchestrator.Device().Wipe(r.Context(), body.ConfirmationCode); err != nil {
		s.fail(w, "wiping device", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Device wiped successfully"})
}

func (s *Server) handlePlaySound(w http.ResponseWriter, r *http.Request) {
	if err := s.orchestrator.Device().PlaySound(r.Context()); err != nil {
		s.fail(w, "playing alarm sound", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Alarm sound played successfully"})
}

// Apps

func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"apps": s.orchestrator.Apps().List(r.Context())})
}

func (s *Server) handleRecordInstallation(w http.ResponseWriter, r *http.Request) {
	var body InstallationRequest
	if !s.decode(w, r, "record installation", &body) {
		return
	}
	inst, err := s.orchestrator.Apps().RecordInstallation(r.Context(), body.AppName, body.Version, body.Timestamp)
	if err != nil {
		s.fail(w, "recording installation", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "installation recorded", "installation": inst})
}

func (s *Server) handleInstallationHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.orchestrator.Apps().History(r.Context())
	if err != nil {
		s.fail(w, "listing installation history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}
