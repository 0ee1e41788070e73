package daemon

import (
	"context"
	"time"

	"github.com/Lakr233/vphone-cli/internal/capability"
	"github.com/Lakr233/vphone-cli/internal/hid"
	"github.com/Lakr233/vphone-cli/internal/protocol"
)

func (s *Server) handlePing(_ context.Context, _ *session, msg *protocol.Message) (protocol.Response, error) {
	resp := protocol.NewResponse(msg)
	resp["time"] = time.Now().UnixMilli()
	return resp, nil
}

func (s *Server) handleCapabilities(_ context.Context, _ *session, msg *protocol.Message) (protocol.Response, error) {
	resp := protocol.NewResponse(msg)
	resp["capabilities"] = s.registry.Snapshot()
	return resp, nil
}

func (s *Server) submitChain(msg *protocol.Message, chain hid.Chain) (protocol.Response, error) {
	if !s.scheduler.Load().Has(msg.Type) {
		return nil, protocol.Unavailable(msg.Type)
	}
	h, err := s.scheduler.Submit(chain)
	if err != nil {
		return nil, protocol.Unavailable(err.Error())
	}
	resp := protocol.NewResponse(msg)
	resp["chain"] = h.ID()
	return resp, nil
}

func (s *Server) handleHIDKey(_ context.Context, _ *session, msg *protocol.Message) (protocol.Response, error) {
	var p struct {
		Page  uint32 `json:"page"`
		Usage uint32 `json:"usage"`
		Down  bool   `json:"down"`
	}
	if err := msg.Bind(&p); err != nil {
		return nil, err
	}
	return s.submitChain(msg, hid.Key(p.Page, p.Usage, p.Down))
}

func (s *Server) handleHIDPress(_ context.Context, _ *session, msg *protocol.Message) (protocol.Response, error) {
	var p struct {
		Page  uint32 `json:"page"`
		Usage uint32 `json:"usage"`
	}
	if err := msg.Bind(&p); err != nil {
		return nil, err
	}
	return s.submitChain(msg, hid.Press(p.Page, p.Usage))
}

func (s *Server) handleUnlock(_ context.Context, _ *session, msg *protocol.Message) (protocol.Response, error) {
	return s.submitChain(msg, hid.Unlock())
}

func (s *Server) handleLocationSet(_ context.Context, _ *session, msg *protocol.Message) (protocol.Response, error) {
	var p struct {
		Lat    float64 `json:"lat"`
		Lon    float64 `json:"lon"`
		Alt    float64 `json:"alt"`
		HAcc   float64 `json:"hacc"`
		VAcc   float64 `json:"vacc"`
		Speed  float64 `json:"speed"`
		Course float64 `json:"course"`
	}
	if err := msg.Bind(&p); err != nil {
		return nil, err
	}
	if !s.location.Load().Has(protocol.CmdLocationSet) {
		return nil, protocol.Unavailable(protocol.CmdLocationSet)
	}
	fix := capability.Fix{
		Lat: p.Lat, Lon: p.Lon, Alt: p.Alt,
		HAcc: p.HAcc, VAcc: p.VAcc,
		Speed: p.Speed, Course: p.Course,
	}
	if err := s.location.Simulate(fix); err != nil {
		return nil, err
	}
	return protocol.NewResponse(msg), nil
}

func (s *Server) handleLocationClear(_ context.Context, _ *session, msg *protocol.Message) (protocol.Response, error) {
	if !s.location.Load().Has(protocol.CmdLocationClear) {
		return nil, protocol.Unavailable(protocol.CmdLocationClear)
	}
	if err := s.location.Clear(); err != nil {
		return nil, err
	}
	return protocol.NewResponse(msg), nil
}

func (s *Server) handleDevModeStatus(_ context.Context, _ *session, msg *protocol.Message) (protocol.Response, error) {
	if !s.devmode.Load().Has(protocol.CmdDevModeStatus) {
		return nil, protocol.Unavailable(protocol.CmdDevModeStatus)
	}
	enabled, err := s.devmode.Status()
	if err != nil {
		return nil, err
	}
	resp := protocol.NewResponse(msg)
	resp["enabled"] = enabled
	return resp, nil
}

func (s *Server) handleDevModeArm(_ context.Context, _ *session, msg *protocol.Message) (protocol.Response, error) {
	if !s.devmode.Load().Has(protocol.CmdDevModeArm) {
		return nil, protocol.Unavailable(protocol.CmdDevModeArm)
	}
	res, err := s.devmode.Arm()
	if err != nil {
		return nil, err
	}
	resp := protocol.NewResponse(msg)
	resp["enabled"] = res.Enabled
	resp["already_enabled"] = res.AlreadyEnabled
	return resp, nil
}
