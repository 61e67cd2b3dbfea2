package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/threat-analyzer/internal/analyzer/email"
	"github.com/mikey/threat-analyzer/internal/analyzer/pdf"
	"github.com/mikey/threat-analyzer/internal/analyzer/urlintel"
	"github.com/mikey/threat-analyzer/internal/config"
	"github.com/mikey/threat-analyzer/internal/core"
	"github.com/mikey/threat-analyzer/internal/factory"
	"github.com/mikey/threat-analyzer/internal/logging"
	"github.com/mikey/threat-analyzer/internal/metrics"
	"github.com/mikey/threat-analyzer/internal/ports"
	"github.com/mikey/threat-analyzer/internal/whitelist"
)

// BuildContainer creates and configures a dependency injection container
// for the daemon
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	if err := container.Provide(config.New); err != nil {
		return nil, err
	}
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}
	if err := provideAnalysis(container); err != nil {
		return nil, err
	}

	// Register listener
	if err := container.Provide(func(f *factory.ListenerFactory) (ports.Listener, error) {
		return f.CreateListener()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideAnalysis registers everything below the transport: factories,
// engines, store, metrics and the analysis service. It expects a
// *config.Config and a *zap.Logger to be provided.
func provideAnalysis(container *dig.Container) error {
	for _, ctor := range []any{
		factory.NewAnalyzerFactory,
		factory.NewStoreFactory,
		factory.NewTextProcessorFactory,
		factory.NewListenerFactory,
	} {
		if err := container.Provide(ctor); err != nil {
			return err
		}
	}

	// Register engines
	if err := container.Provide(func(f *factory.AnalyzerFactory) *email.Classifier {
		return f.CreateEmailClassifier()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.AnalyzerFactory) *pdf.Analyzer {
		return f.CreatePDFAnalyzer()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.AnalyzerFactory) *whitelist.Checker {
		return f.CreateTrustedDomains()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.AnalyzerFactory, trusted *whitelist.Checker) *urlintel.Analyzer {
		return f.CreateURLAnalyzer(trusted)
	}); err != nil {
		return err
	}

	// Register verdict store; nil when disabled
	if err := container.Provide(func(f *factory.StoreFactory) (core.VerdictRepository, error) {
		return f.CreateVerdictStore()
	}); err != nil {
		return err
	}

	// Register metrics; nil when disabled
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *metrics.Recorder {
		mc := cfg.GetMetrics()
		if !mc.Enabled {
			return nil
		}
		logger.Info("Metrics enabled", zap.String("namespace", mc.Namespace))
		return metrics.NewRecorder(mc.Namespace)
	}); err != nil {
		return err
	}

	// Register analysis service
	return container.Provide(func(
		ec *email.Classifier,
		pa *pdf.Analyzer,
		ua *urlintel.Analyzer,
		repo core.VerdictRepository,
		recorder *metrics.Recorder,
		tf *factory.TextProcessorFactory,
		sf *factory.StoreFactory,
		logger *zap.Logger,
	) (*core.AnalysisService, error) {
		retention, err := sf.Retention()
		if err != nil {
			return nil, err
		}
		// A nil *Recorder must not become a non-nil interface.
		var mr core.MetricsRecorder
		if recorder != nil {
			mr = recorder
		}
		return core.NewAnalysisService(ec, pa, ua, repo, mr, tf.CreateTextProcessor(), logger, core.ServiceOptions{
			Retention:    retention,
			MaxTextBytes: tf.MaxTextBytes(),
		}), nil
	})
}

// Closer releases a resource held by the container
type Closer interface {
	Stop()
}

// Close stops the verdict store when it holds background resources
func Close(container *dig.Container) error {
	return container.Invoke(func(repo core.VerdictRepository) {
		if c, ok := repo.(Closer); ok {
			c.Stop()
		}
	})
}
