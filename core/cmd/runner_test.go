package cmd

import (
	"context"
	"errors"
	"testing"

	coreconfig "github.com/m3rciful/exchangebot/core/config"
	coretelegram "github.com/m3rciful/exchangebot/core/telegram"
)

type carrier struct{ core *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.core }

type app struct {
	opts coretelegram.RunOptions
	err  error
}

func (a app) TelegramRunOptions() (coretelegram.RunOptions, error) { return a.opts, a.err }

func TestConfigPath(t *testing.T) {
	t.Setenv("BOT_CONFIG", "")
	if _, err := configPath(Options{ConfigEnv: "BOT_CONFIG"}); err == nil {
		t.Fatal("expected error without env or default")
	}
	p, err := configPath(Options{ConfigEnv: "BOT_CONFIG", DefaultConfigPath: "configs/config.yaml"})
	if err != nil || p != "configs/config.yaml" {
		t.Fatalf("default path = %q, %v", p, err)
	}
	t.Setenv("BOT_CONFIG", " /etc/bot.yaml ")
	if p, _ = configPath(Options{ConfigEnv: "BOT_CONFIG", DefaultConfigPath: "x"}); p != "/etc/bot.yaml" {
		t.Fatalf("env path = %q", p)
	}
}

func TestRunWrapsHooks(t *testing.T) {
	var calls []string
	inner := coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error { calls = append(calls, "start"); return nil },
		OnStop:  func(context.Context, coretelegram.Runtime) error { calls = append(calls, "stop"); return nil },
	}
	shut := 0
	err := run(context.Background(), Options{
		DefaultConfigPath: "any.yaml",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			return carrier{core: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) { return app{opts: inner}, nil },
		Serve: func(ctx context.Context, o coretelegram.RunOptions) error {
			if err := o.OnStart(ctx, coretelegram.Runtime{}); err != nil {
				return err
			}
			return o.OnStop(ctx, coretelegram.Runtime{})
		},
		ShutdownLogger: func() error { shut++; return nil },
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(calls) != 2 || calls[0] != "start" || calls[1] != "stop" {
		t.Fatalf("hooks = %v", calls)
	}
	if shut != 1 {
		t.Fatalf("logger shutdown called %d times", shut)
	}
}

func TestRunErrors(t *testing.T) {
	boom := errors.New("boom")
	base := Options{
		DefaultConfigPath: "any.yaml",
		LoadConfig:        func(string) (ConfigCarrier, error) { return carrier{core: &coreconfig.Config{}}, nil },
		Bootstrap:         func(context.Context, ConfigCarrier) (TelegramApp, error) { return app{}, nil },
		Serve:             func(context.Context, coretelegram.RunOptions) error { return nil },
		ShutdownLogger:    func() error { return nil },
	}

	o := base
	o.LoadConfig = func(string) (ConfigCarrier, error) { return nil, boom }
	if err := run(context.Background(), o); !errors.Is(err, boom) {
		t.Fatalf("load error = %v", err)
	}

	o = base
	o.LoadConfig = func(string) (ConfigCarrier, error) { return carrier{}, nil }
	if err := run(context.Background(), o); err == nil {
		t.Fatal("missing core config must fail")
	}

	o = base
	o.Bootstrap = func(context.Context, ConfigCarrier) (TelegramApp, error) { return app{err: boom}, nil }
	if err := run(context.Background(), o); !errors.Is(err, boom) {
		t.Fatalf("options error = %v", err)
	}
}
