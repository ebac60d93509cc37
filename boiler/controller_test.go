package boiler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-kotel/boiler"
	"github.com/arloliu/go-kotel/exchange"
	"github.com/arloliu/go-kotel/internal/devicetest"
	"github.com/arloliu/go-kotel/token"
)

type testEnv struct {
	dev    *devicetest.Device
	url    string
	tokens *token.Store
	ctrl   *boiler.Controller
}

func newTestEnv(t *testing.T, opts ...boiler.ControllerOption) *testEnv {
	t.Helper()

	dev := devicetest.New()
	srv := devicetest.NewServer(t, dev)

	tokens, err := token.NewStore(nil)
	require.NoError(t, err)
	require.NoError(t, tokens.Set(dev.IssueToken()))

	env := &testEnv{dev: dev, url: srv.URL + "/", tokens: tokens}

	base := []boiler.ControllerOption{
		boiler.WithRetryDelay(20 * time.Millisecond),
		boiler.WithClientOptions(
			exchange.WithTokenStore(tokens),
			exchange.WithReconnectDelay(20*time.Millisecond),
		),
	}
	env.ctrl, err = boiler.NewController(context.Background(),
		&exchange.WebSocketDialer{URL: env.url},
		append(base, opts...)...,
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.ctrl.Close() })

	return env
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	return ctx
}

func TestController_Status(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	env.dev.SetTemperatures(215, -32768)

	st, err := env.ctrl.Status(testContext(t), boiler.NoManualControl)
	require.NoError(err)
	require.True(st.Output.Present)
	require.InDelta(21.5, st.Output.Value, 1e-9)
	require.False(st.Input.Present)
	require.Equal(boiler.DriveAutomatic, st.Mode)
	require.WithinDuration(time.Now(), st.Time, 5*time.Second)
	require.Equal(boiler.NoManualControl, env.dev.LastManualControl())
	require.Same(st, env.ctrl.LastStatus())
}

func TestController_PollStatusCarriesOverrides(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	ctx := testContext(t)

	env.ctrl.SetFeeder(true)
	env.ctrl.SetFanSpeed(80)
	_, err := env.ctrl.PollStatus(ctx)
	require.NoError(err)
	require.Equal(boiler.ManualControl{
		FeederTimer: 3, FanTimer: boiler.NoOverride, FanSpeed: 80, ForcePump: boiler.NoOverride,
	}, env.dev.LastManualControl())

	env.ctrl.SetFeeder(false)
	_, err = env.ctrl.PollStatus(ctx)
	require.NoError(err)
	require.Equal(uint8(0), env.dev.LastManualControl().FeederTimer)
	require.Equal(boiler.NoOverride, env.dev.LastManualControl().FanSpeed)
}

func TestController_ReadAndSetConfig(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	ctx := testContext(t)

	cfg, err := env.ctrl.ReadConfig(ctx)
	require.NoError(err)
	require.Equal("15", cfg[boiler.KeyBagKg])
	require.Equal("****", cfg["wifi.password"])
	trayKg, ok := cfg.Int(boiler.KeyTrayKg)
	require.True(ok)
	require.Equal(225, trayKg)

	require.NoError(env.ctrl.SetConfig(ctx, boiler.Config{boiler.KeyBagKg: "20", "wifi.ssid": "attic & co"}))
	require.Equal("20", env.dev.ConfigValue(boiler.KeyBagKg))
	require.Equal("20", env.ctrl.Config()[boiler.KeyBagKg])

	ssid, err := env.ctrl.ReadSSID(ctx)
	require.NoError(err)
	require.Equal("attic & co", ssid)

	err = env.ctrl.SetConfig(ctx, boiler.Config{boiler.KeyOutputMaxTemp: "300"})
	var rejected *boiler.ConfigRejectedError
	require.ErrorAs(err, &rejected)
	require.Equal(boiler.KeyOutputMaxTemp, rejected.Field)
	require.Equal("85", env.ctrl.Config()[boiler.KeyOutputMaxTemp])

	err = env.ctrl.SetConfig(ctx, boiler.Config{"bogus": "1"})
	require.ErrorAs(err, &rejected)
	require.Equal("bogus", rejected.Field)

	require.NoError(env.ctrl.SetConfig(ctx, nil))
}

func TestController_SetFuel(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	ctx := testContext(t)

	_, err := env.ctrl.ReadConfig(ctx)
	require.NoError(err)

	require.NoError(env.ctrl.SetFuel(ctx, boiler.FuelChange{Kg: 30}))
	require.Equal("150", env.dev.ConfigValue(boiler.KeyTrayFillKg))
	require.Equal("150", env.ctrl.Config()[boiler.KeyTrayFillKg])

	require.NoError(env.ctrl.SetFuel(ctx, boiler.FuelChange{Full: true}))
	require.Equal("225", env.dev.ConfigValue(boiler.KeyTrayFillKg))

	require.ErrorIs(env.ctrl.SetFuel(ctx, boiler.FuelChange{Kg: 300}), boiler.ErrFuelOutOfRange)

	env.dev.FailFuel(true)
	require.ErrorIs(env.ctrl.SetFuel(ctx, boiler.FuelChange{Kg: 10, Calibrate: true}), boiler.ErrFuelRejected)
}

func TestController_StatsAndMaintenance(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	ctx := testContext(t)

	st, err := env.ctrl.Stats(ctx)
	require.NoError(err)
	require.Equal(uint16(42), st.StartCount)
	require.Equal(uint16(240), st.Feeder1KgTime)
	require.Equal(uint32(1530), st.ConsumedKgTotal)

	require.NoError(env.ctrl.ClearStats(ctx))
	require.Equal(1, env.dev.ClearCount())

	tasks, err := env.ctrl.Tasks(ctx)
	require.NoError(err)
	require.Len(tasks, 4)
	require.Equal(boiler.TaskInfo{Name: "feeder", RunTime: 12, ScheduledTime: 1000}, tasks[0])

	pwd, err := env.ctrl.ReadSector(ctx, boiler.SectorWiFiPwd)
	require.NoError(err)
	require.Equal("****", string(pwd))
}

func TestController_PairingCodeAndUnpair(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	ctx := testContext(t)

	code, err := env.ctrl.PairingCode(ctx)
	require.NoError(err)
	require.Len(code, boiler.CodeLength)
	require.Equal(env.dev.Code(), code)

	old := env.tokens.Get()
	require.NoError(env.ctrl.Unpair(ctx))
	require.NotEqual(old, env.tokens.Get())
	require.False(env.dev.ValidToken(old))
	require.True(env.dev.ValidToken(env.tokens.Get()))
}

func TestController_StartupSequence(t *testing.T) {
	require := require.New(t)

	var configs atomic.Int32
	env := newTestEnv(t, boiler.WithConfigHandler(func(boiler.Config) { configs.Add(1) }))

	require.NoError(env.ctrl.Client().Connect())
	require.Eventually(func() bool {
		return env.ctrl.SSID() == "boiler-room" && env.ctrl.LastStats() != nil
	}, 3*time.Second, 10*time.Millisecond)
	require.Equal("225", env.ctrl.Config()[boiler.KeyTrayKg])
	require.Equal(int32(1), configs.Load())
}

func TestController_RenewsTokenByPairing(t *testing.T) {
	require := require.New(t)

	dev := devicetest.New()
	srv := devicetest.NewServer(t, dev)
	pageURL := srv.URL + "/"

	tokens, err := token.NewStore(nil)
	require.NoError(err)
	require.NoError(tokens.Set("revoked"))

	pairing := &boiler.Pairing{BaseURL: pageURL, HTTPClient: srv.Client()}
	var prompts atomic.Int32
	hook := pairing.TokenHook(func(context.Context) (string, error) {
		prompts.Add(1)
		return dev.Code(), nil
	})

	ctrl, err := boiler.NewController(context.Background(), &exchange.WebSocketDialer{URL: pageURL},
		boiler.WithRetryDelay(20*time.Millisecond),
		boiler.WithClientOptions(
			exchange.WithTokenStore(tokens),
			exchange.WithReconnectDelay(20*time.Millisecond),
			exchange.WithOnTokenRequired(hook),
		),
	)
	require.NoError(err)
	defer ctrl.Close()

	require.Eventually(func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, err := ctrl.Status(ctx, boiler.NoManualControl)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	require.Equal(int32(1), prompts.Load())
	require.True(dev.ValidToken(tokens.Get()))
	require.Equal(uint64(1), ctrl.Client().Metrics().TokenRenewCount.Load())
}

func TestController_Logout(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	ctx := testContext(t)

	_, err := env.ctrl.Stats(ctx)
	require.NoError(err)

	require.NoError(env.ctrl.Logout())
	require.Empty(env.tokens.Get())

	shortCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = env.ctrl.Stats(shortCtx)
	require.Error(err)
}

func TestController_RebootReconnects(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	ctx := testContext(t)

	require.NoError(env.ctrl.Reboot(ctx))
	require.Eventually(func() bool {
		return env.ctrl.Client().Metrics().DisconnectCount.Load() >= 1
	}, 3*time.Second, 10*time.Millisecond)

	_, err := env.ctrl.Stats(ctx)
	require.NoError(err)
	require.GreaterOrEqual(env.ctrl.Client().Metrics().ConnectCount.Load(), uint64(2))
}

func TestController_SilentDeviceTimesOut(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t, boiler.WithClientOptions(exchange.WithIdleTimeout(200*time.Millisecond)))
	env.dev.Silence(byte(boiler.CmdGetStats), true)

	_, err := env.ctrl.Stats(testContext(t))
	require.ErrorIs(err, exchange.ErrConnectionFailure)
	require.True(exchange.IsReason(err, exchange.ReasonIdleTimeout))
}

func TestController_Run(t *testing.T) {
	require := require.New(t)

	statuses := make(chan *boiler.Status, 16)
	stats := make(chan *boiler.Stats, 16)
	env := newTestEnv(t,
		boiler.WithStatusInterval(100*time.Millisecond),
		boiler.WithStatusHandler(func(st *boiler.Status) {
			select {
			case statuses <- st:
			default:
			}
		}),
		boiler.WithStatsHandler(func(st *boiler.Stats) {
			select {
			case stats <- st:
			default:
			}
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.ctrl.Run(ctx) }()

	for range 2 {
		select {
		case st := <-statuses:
			require.True(st.Output.Present)
		case <-time.After(3 * time.Second):
			t.Fatal("timeout waiting for status")
		}
	}
	select {
	case <-stats:
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for stats")
	}

	cancel()
	select {
	case err := <-done:
		require.True(errors.Is(err, context.Canceled))
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestNewController_InvalidOption(t *testing.T) {
	_, err := boiler.NewController(context.Background(), &exchange.WebSocketDialer{URL: "http://127.0.0.1/"},
		boiler.WithStatusInterval(time.Millisecond))
	require.Error(t, err)

	_, err = boiler.NewController(context.Background(), nil)
	require.ErrorIs(t, err, exchange.ErrDialerNil)
}
