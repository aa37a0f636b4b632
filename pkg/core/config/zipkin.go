package config

import (
	"github.com/openzipkin/zipkin-go"
	"github.com/openzipkin/zipkin-go/reporter"
	"github.com/openzipkin/zipkin-go/reporter/http"
)

type ZipkinConfig struct {
	Url        string `yaml:"url"`
	SampleRate uint64 `yaml:"sample-rate"`
}

// InitZipkin 返回的 reporter 需要在进程退出时关闭
func InitZipkin(zipkinConfig ZipkinConfig, appName, host string) (*zipkin.Tracer, reporter.Reporter, error) {
	rep := http.NewReporter(zipkinConfig.Url)

	endpoint, err := zipkin.NewEndpoint(appName, host)
	if err != nil {
		rep.Close()
		return nil, nil, err
	}

	mod := zipkinConfig.SampleRate
	if mod == 0 {
		mod = 1
	}
	tracer, err := zipkin.NewTracer(
		rep,
		zipkin.WithLocalEndpoint(endpoint),
		zipkin.WithSampler(zipkin.NewModuloSampler(mod)),
	)
	if err != nil {
		rep.Close()
		return nil, nil, err
	}
	return tracer, rep, nil
}
