package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beka-birhanu/udp-socket-manager/crypto"
	udppb "github.com/beka-birhanu/udp-socket-manager/encoding"
	udpsocket "github.com/beka-birhanu/udp-socket-manager/socket"
	general_i "github.com/beka-birhanu/vinom-common/interfaces/general"
	socket_i "github.com/beka-birhanu/vinom-common/interfaces/socket"
	logger "github.com/beka-birhanu/vinom-common/log"
	"github.com/beka-birhanu/vinom-treasure-maze/api"
	"github.com/beka-birhanu/vinom-treasure-maze/config"
	"github.com/beka-birhanu/vinom-treasure-maze/config/tuning"
	"github.com/beka-birhanu/vinom-treasure-maze/economy"
	"github.com/beka-birhanu/vinom-treasure-maze/observer"
	"github.com/beka-birhanu/vinom-treasure-maze/payment"
	"github.com/beka-birhanu/vinom-treasure-maze/service"
	"github.com/beka-birhanu/vinom-treasure-maze/store"
	"google.golang.org/grpc"
)

const pruneEvery = time.Minute

// Global variables for dependencies
var (
	grpcConnListener net.Listener
	grpcServer       *grpc.Server
	observerServer   *http.Server
	udpSocketManager socket_i.ServerSocketManager
	sessionManager   *service.SessionManager
	sessionStore     *store.SQLiteStore
	paymentGateway   *payment.Gateway
	economyEngine    *economy.Engine
	gameTuning       tuning.Tuning
	gameStart        time.Time
	appLogger        general_i.Logger
)

func mustLogger(prefix, color string) general_i.Logger {
	l, err := logger.New(prefix, color, os.Stdout)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating %s logger: %v", prefix, err))
		os.Exit(1)
	}
	return l
}

func initTuning() {
	t, err := tuning.Load(config.Envs.TuningPath)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Loading tuning: %v", err))
		os.Exit(1)
	}
	gameTuning = t
	appLogger.Info(fmt.Sprintf("Tuning loaded: %dx%d grid, %ds claim, %ds play", t.Rows, t.Cols, t.ClaimSeconds, t.PlaySeconds))
}

func initStore() {
	s, err := store.OpenSQLite(config.Envs.DBPath)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Opening session cache: %v", err))
		os.Exit(1)
	}
	start, err := s.EnsureGameStartEpoch(context.Background(), time.Now())
	if err != nil {
		appLogger.Error(fmt.Sprintf("Reading game start: %v", err))
		os.Exit(1)
	}
	sessionStore = s
	gameStart = start
	appLogger.Info(fmt.Sprintf("Session cache opened at %s, game started %s", config.Envs.DBPath, start.UTC().Format(time.RFC3339)))
}

func initPaymentGateway() {
	variant, err := payment.VariantByName(config.Envs.PaymentVariant)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Choosing payment variant: %v", err))
		os.Exit(1)
	}
	gw, err := payment.NewGateway(&payment.Config{
		Variant:  variant,
		Settler:  &payment.SimulatedSettler{Latency: gameTuning.SettleLatency()},
		Recorder: sessionStore,
		Logger:   mustLogger("PAYMENT", config.ColorYellow),
	})
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating payment gateway: %v", err))
		os.Exit(1)
	}
	paymentGateway = gw
	appLogger.Info(fmt.Sprintf("Payment gateway initialized for %s (%s)", variant.Name, variant.Currency))
}

func initEconomy() {
	routing, err := economy.ParseFeeRouting(config.Envs.FeeRouting)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Reading FEE_ROUTING: %v", err))
		os.Exit(1)
	}
	rules := gameTuning.Rules()
	rules.FeeRouting = routing
	rules.Payments = paymentGateway
	rules.Logger = mustLogger("ECONOMY", config.ColorPurple)

	e, err := economy.NewEngine(&rules)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating economy engine: %v", err))
		os.Exit(1)
	}
	economyEngine = e
	appLogger.Info(fmt.Sprintf("Economy engine initialized, crossing fees go to the %s", routing))
}

func initUDPSocketManager() {
	serverAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%v", config.Envs.HostIP, config.Envs.UdpPort))
	if err != nil {
		appLogger.Error(fmt.Sprintf("Resolving server address: %v", err))
		os.Exit(1)
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Generating RSA key: %v", err))
		os.Exit(1)
	}

	server, err := udpsocket.NewServerSocketManager(
		udpsocket.ServerConfig{
			ListenAddr:  serverAddr,
			AsymmCrypto: crypto.NewRSA(privateKey),
			SymmCrypto:  crypto.NewAESCBC(),
			Encoder:     &udppb.Protobuf{},
			HMAC:        &crypto.HMAC{},
			Logger:      mustLogger("SERVER-SOCKET", config.ColorBlue),
		},
		udpsocket.ServerWithReadBufferSize(config.Envs.UDPBufferSize),
		udpsocket.ServerWithHeartbeatExpiration(time.Duration(config.Envs.UDPHeartbeatExpiration)*time.Millisecond),
	)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating server UDP socket manager: %v", err))
		os.Exit(1)
	}

	udpSocketManager = server
	appLogger.Info("UDP Socket Manager initialized")
}

func initSessionManager() {
	manager, err := service.NewSessionManager(
		&service.Config{
			Socket:      udpSocketManager,
			Store:       sessionStore,
			Engine:      economyEngine,
			Schedule:    gameTuning.Schedule(),
			Start:       gameStart,
			Logger:      mustLogger("SESSION-MANAGER", config.ColorCyan),
			RoundLogger: mustLogger("ROUND", config.ColorCyan),
		},
	)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating session manager: %v", err))
		os.Exit(1)
	}
	sessionManager = manager
	appLogger.Info("Session Manager initialized")
}

func initSessionController() {
	grpcServer = grpc.NewServer()
	if err := api.RegisterNewSessionManager(grpcServer, sessionManager); err != nil {
		appLogger.Error(fmt.Sprintf("Creating and Registering session controller: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Session controller initialized")
}

func initObserver() {
	obs, err := observer.NewServer(&observer.Config{
		Source:  sessionManager,
		History: sessionStore,
		Logger:  mustLogger("OBSERVER", config.ColorGreen),
	})
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating observer: %v", err))
		os.Exit(1)
	}
	observerServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Envs.ObserverPort),
		Handler:           obs,
		ReadHeaderTimeout: 5 * time.Second,
	}
	appLogger.Info("Observer initialized")
}

func prunePayments(ctx context.Context) {
	x := time.NewTicker(pruneEvery)
	defer x.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-x.C:
			if n := paymentGateway.Prune(gameTuning.PruneAfter()); n > 0 {
				appLogger.Info(fmt.Sprintf("Pruned %d settled transactions", n))
			}
		}
	}
}

func main() {
	appLogger, _ = logger.New("APP", config.ColorGreen, os.Stdout)
	initTuning()
	initStore()
	initPaymentGateway()
	initEconomy()
	initUDPSocketManager()
	initSessionManager()
	initSessionController()
	initObserver()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer func() {
		sessionManager.StopAll()
		udpSocketManager.Stop()
		_ = sessionStore.Close()
	}()

	go udpSocketManager.Serve()
	appLogger.Info("UDP Socket Manager started serving")

	go prunePayments(ctx)

	go func() {
		appLogger.Info(fmt.Sprintf("Serving observer at: %s", observerServer.Addr))
		if err := observerServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error(fmt.Sprintf("Serving observer: %v", err))
		}
	}()

	var err error
	addr := fmt.Sprintf("%s:%v", config.Envs.ProxyIP, config.Envs.GrpcPort)
	grpcConnListener, err = net.Listen("tcp", addr)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Listening tcp: %v", err))
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		appLogger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = observerServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
	}()

	appLogger.Info(fmt.Sprintf("Serving gRPC at: %s", addr))
	if err := grpcServer.Serve(grpcConnListener); err != nil {
		appLogger.Error(fmt.Sprintf("Serving gRPC: %v", err))
	}
}
