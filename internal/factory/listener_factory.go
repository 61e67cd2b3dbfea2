package factory

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mikey/threat-analyzer/internal/adapters/filter"
	"github.com/mikey/threat-analyzer/internal/adapters/httpapi"
	"github.com/mikey/threat-analyzer/internal/config"
	"github.com/mikey/threat-analyzer/internal/core"
	"github.com/mikey/threat-analyzer/internal/metrics"
	"github.com/mikey/threat-analyzer/internal/ports"
)

// ListenerFactory creates the configured transport
type ListenerFactory struct {
	cfg      *config.Config
	logger   *zap.Logger
	service  *core.AnalysisService
	recorder *metrics.Recorder
}

// NewListenerFactory creates a new listener factory. recorder may be nil.
func NewListenerFactory(cfg *config.Config, logger *zap.Logger, service *core.AnalysisService, recorder *metrics.Recorder) *ListenerFactory {
	return &ListenerFactory{
		cfg:      cfg,
		logger:   logger,
		service:  service,
		recorder: recorder,
	}
}

// CreateListener creates a listener based on server.type
func (f *ListenerFactory) CreateListener() (ports.Listener, error) {
	sc, err := f.cfg.GetServer()
	if err != nil {
		return nil, err
	}

	switch sc.Type {
	case "http":
		return httpapi.NewServer(f.service, f.recorder, f.logger, httpapi.Options{
			ListenAddr:      sc.ListenAddress,
			ReadTimeout:     sc.ReadTimeout,
			WriteTimeout:    sc.WriteTimeout,
			MaxRequestBytes: sc.MaxRequestBytes,
			AnalysisTimeout: sc.AnalysisTimeout,
			Version:         f.cfg.GetString("email.version"),
		}), nil
	case "postfix":
		pc := f.cfg.GetPostfix()
		return filter.NewPostfixFilter(f.service, f.logger, filter.PostfixOptions{
			ListenAddr:       sc.ListenAddress,
			BlockPhishing:    pc.BlockPhishing,
			LabelHeader:      pc.LabelHeader,
			ScoreHeader:      pc.ScoreHeader,
			ConfidenceHeader: pc.ConfidenceHeader,
			ReasonsHeader:    pc.ReasonsHeader,
			PostfixAddr:      pc.Address,
			PostfixPort:      pc.Port,
			PostfixEnabled:   pc.Enabled,
			SubjectPrefix:    pc.SubjectPrefix,
			ModifySubject:    pc.ModifySubject,
			MaxMessageBytes:  sc.MaxRequestBytes,
			AnalysisTimeout:  sc.AnalysisTimeout,
		}), nil
	case "cli":
		return f.CreateCliFilter(), nil
	default:
		return nil, fmt.Errorf("unsupported server type: %s", sc.Type)
	}
}

// CreateCliFilter creates a CLI filter printing to stdout
func (f *ListenerFactory) CreateCliFilter() *filter.CliFilter {
	return filter.NewCliFilter(
		f.service,
		f.logger,
		os.Stdout,
		f.cfg.GetBool("cli.verbose"),
		f.cfg.GetBool("cli.json"),
	)
}
