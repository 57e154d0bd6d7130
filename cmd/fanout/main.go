package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"hydra-fanout-sol/internal/config"
	"hydra-fanout-sol/internal/report"
	"hydra-fanout-sol/internal/svc"
	"hydra-fanout-sol/internal/wallet"
	"hydra-fanout-sol/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
)

var (
	configFile   = flag.String("f", "etc/fanout.yaml", "the config file")
	mintVouchers = flag.Bool("mint-vouchers", false, "list all mint vouchers instead of distributing")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-f etc/fanout.yaml] [-mint-vouchers] <SOLANA_RPC_URL> <KEYPAIR_PATH>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	// os.Exit 放在 run 之外，保证 run 内的 defer（关闭 sink、刷日志）都已执行
	os.Exit(run())
}

func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
			code = 1
		}
	}()

	if flag.NArg() != 2 {
		usage()
		return 2
	}
	rpcURL, keypairPath := flag.Arg(0), flag.Arg(1)

	// .env 不存在时忽略
	_ = godotenv.Load()

	var c config.FanoutConfig
	if err := loadConfig(*configFile, &c); err != nil {
		fmt.Fprintf(os.Stderr, "load config %s: %v\n", *configFile, err)
		return 1
	}
	c.Rpc.Endpoint = rpcURL
	c.Normalize()

	if err := logger.Init(c.LogConf.ToLogOption()); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	payer, err := wallet.LoadKeypair(keypairPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to read keypair file: %v\n", err)
		return 1
	}

	serviceContext, err := svc.NewServiceContext(c, payer)
	if err != nil {
		logger.Errorf("[Main] 初始化失败: %v", err)
		return 1
	}
	defer serviceContext.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *mintVouchers {
		if _, err := serviceContext.Walker.DumpMintVouchers(ctx); err != nil {
			logger.Errorf("[Main] mint voucher 扫描失败: %v", err)
			return 1
		}
		return 0
	}

	summary, runErr := serviceContext.Walker.Run(ctx)
	// 发布不受运行 ctx 取消影响
	report.PublishAll(context.Background(), serviceContext.Sinks, summary)
	if runErr != nil {
		logger.Errorf("[Main] 遍历中止: %v", runErr)
		return 1
	}
	return 0
}

// loadConfig 配置文件可选，不存在时全部取默认值。
// 这里不做必填校验，endpoint 由命令行覆盖后在 svc.NewServiceContext 中检查
func loadConfig(path string, c *config.FanoutConfig) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return conf.FillDefault(c)
	}
	return conf.Load(path, c, conf.UseEnv())
}
