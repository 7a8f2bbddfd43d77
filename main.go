package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"nft_market/config"
	"nft_market/contract"
	"nft_market/dao"
	"nft_market/handler"
	"nft_market/market"
	"nft_market/service"
	"nft_market/utils"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 1. 初始化配置
	if err := config.InitConfig(); err != nil {
		zap.L().Fatal("初始化配置失败", zap.Error(err))
	}
	cfg := config.GlobalConfig

	// 2. 初始化日志
	if err := utils.InitLogger(gin.Mode() != gin.ReleaseMode); err != nil {
		zap.L().Fatal("初始化日志失败", zap.Error(err))
	}

	// 3. 初始化MySQL
	if err := dao.InitMySQL(cfg.MySQLDSN); err != nil {
		utils.Logger.Fatal("连接MySQL失败", zap.Error(err))
	}

	// 4. 初始化Redis
	if err := utils.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err != nil {
		utils.Logger.Fatal("连接Redis失败", zap.Error(err))
	}

	// 5. 初始化RabbitMQ
	if err := utils.InitRabbitMQ(cfg.RabbitMQURL); err != nil {
		utils.Logger.Fatal("初始化RabbitMQ失败", zap.Error(err))
	}
	defer utils.CloseRabbitMQ()

	// 6. 连接区块链节点并构建受托账户签名器
	rpcUrl, okRPC := cfg.ChainRPCUrl[cfg.ChainID]
	if !okRPC {
		utils.Logger.Fatal("未配置链RPC地址", zap.Int("chain_id", cfg.ChainID))
	}
	client, err := ethclient.Dial(rpcUrl)
	if err != nil {
		utils.Logger.Fatal("连接区块链节点失败", zap.String("rpcUrl", rpcUrl), zap.Error(err))
	}
	if cfg.OperatorKey == "" {
		utils.Logger.Fatal("未配置OPERATOR_KEY")
	}
	operatorKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.OperatorKey, "0x"))
	if err != nil {
		utils.Logger.Fatal("解析受托账户私钥失败", zap.Error(err))
	}
	chainID, err := client.ChainID(context.Background())
	if err != nil {
		utils.Logger.Fatal("获取链ID失败", zap.Error(err))
	}
	auth, err := bind.NewKeyedTransactorWithChainID(operatorKey, chainID)
	if err != nil {
		utils.Logger.Fatal("构建交易授权失败", zap.Error(err))
	}

	// 7. 组装引擎协作方
	resolver, err := contract.NewResolver(client, auth, cfg.MultiToken, 128)
	if err != nil {
		utils.Logger.Fatal("创建合集解析器失败", zap.Error(err))
	}

	treasury := common.HexToAddress(cfg.TreasuryAddr)
	var currency market.Currency
	if cfg.PaymentToken != "" {
		currency, err = contract.NewERC20Currency(client, common.HexToAddress(cfg.PaymentToken), auth)
		if err != nil {
			utils.Logger.Fatal("创建结算币适配器失败", zap.Error(err))
		}
	} else {
		// 原生币结算走进程内账本（充值入口由支付网关对接）
		currency = market.NewNativeLedger(treasury)
	}

	var swapper market.Swapper
	if cfg.SwapRouter != "" {
		swapper, err = contract.NewSwapRouter(client, common.HexToAddress(cfg.SwapRouter), auth)
		if err != nil {
			utils.Logger.Fatal("创建兑换路由失败", zap.Error(err))
		}
	}

	factoryService := service.NewFactoryService()

	// 8. 创建拍卖引擎
	engine := market.NewEngine(market.EngineOptions{
		Owner:     common.HexToAddress(cfg.OwnerAddr),
		Recipient: common.HexToAddress(cfg.RecipientAddr),
		Treasury:  treasury,
		Settings: market.Settings{
			MinOrderDuration:    cfg.MinOrderDuration,
			MinAuctionIncrement: cfg.MinAuctionIncrement,
			MinBidValue:         cfg.MinBidValue,
			MaxOrderDuration:    cfg.MaxOrderDuration,
		},
		Fees: market.FeeConfig{
			HouseFeeBps:     cfg.HouseFeeBps,
			FlatFeeBps:      cfg.FlatFeeBps,
			RoyaltyShareBps: cfg.RoyaltyShareBps,
		},
		Currency:    currency,
		Factory:     factoryService,
		Collections: resolver,
		Splitter:    factoryService,
		Swapper:     swapper,
		Events:      service.MQEventSink{},
		Multi:       cfg.MultiToken,
		Logger:      utils.Logger,
	})

	// 9. 服务与处理器
	marketService := service.NewMarketService(engine, cfg.ChainID)
	tradeService := service.NewTradeService(engine, dao.DB())
	marketHandler := handler.NewMarketHandler(marketService, tradeService, factoryService)
	adminHandler := handler.NewAdminHandler(marketService)

	// 10. 启动结算落库消费者
	if err := tradeService.StartSettleConsumer(); err != nil {
		utils.Logger.Fatal("启动结算消费者失败", zap.Error(err))
	}

	// 11. 启动到期拍卖扫描器
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sweeper := service.NewSweeper(marketService, common.HexToAddress(cfg.OwnerAddr), 30*time.Second)
	go sweeper.Run(ctx)

	// 12. 路由
	r := gin.Default()

	v1 := r.Group("/api/v1/market")
	{
		v1.POST("/orders", marketHandler.ListOrder)              // 挂单
		v1.POST("/orders/bid", marketHandler.Bid)                // 英式拍卖出价
		v1.POST("/orders/buy", marketHandler.Buy)                // 购买
		v1.POST("/orders/claim", marketHandler.Claim)            // 拍卖结算
		v1.POST("/orders/cancel", marketHandler.Cancel)          // 撤单
		v1.GET("/orders/:order_id", marketHandler.GetOrder)      // 订单详情
		v1.GET("/orders", marketHandler.GetOrdersByToken)        // 资产维度订单
		v1.GET("/sellers/:addr", marketHandler.GetOrdersBySeller)// 卖家维度订单
		v1.GET("/escrow/:addr", marketHandler.GetEscrowBalance)  // 托管余额
		v1.POST("/escrow/withdraw", marketHandler.WithdrawOutbid)// 托管提取
		v1.GET("/trades", marketHandler.GetTradeRecords)         // 交易记录
		v1.POST("/collections", marketHandler.RegisterCollection)// 合集登记
	}

	admin := r.Group("/api/v1/admin")
	{
		admin.POST("/settings", adminHandler.UpdateSettings)
		admin.POST("/fees", adminHandler.SetFees)
		admin.POST("/recipient", adminHandler.SetRecipient)
		admin.POST("/pause", adminHandler.Pause)
		admin.POST("/unpause", adminHandler.Unpause)
		admin.POST("/withdraw", adminHandler.Withdraw)
		admin.POST("/orders/del", adminHandler.DelOrder)
	}

	// 13. 启动服务（优雅关闭）
	go func() {
		if err := r.Run(cfg.ServerPort); err != nil {
			utils.Logger.Fatal("启动服务失败", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.Logger.Info("服务正在关闭...")
}
