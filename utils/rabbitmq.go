package utils

import (
	"context"
	"encoding/json"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

var RabbitMQConn *amqp.Connection
var RabbitMQChannel *amqp.Channel

// 市场事件交换机与结算队列
const (
	MarketExchange = "nft_market_exchange"
	SettleQueue    = "market_settle_queue"

	// 事件路由键
	RouteMakeOrder   = "market.order.make"
	RouteBid         = "market.order.bid"
	RouteClaim       = "market.order.claim"
	RouteCancelOrder = "market.order.cancel"
	RouteSettings    = "market.admin.settings"
	RouteFees        = "market.admin.fees"
	RouteRecipient   = "market.admin.recipient"
	RoutePause       = "market.admin.pause"
)

// InitRabbitMQ 初始化RabbitMQ
func InitRabbitMQ(url string) error {
	// 建立连接
	conn, err := amqp.Dial(url)
	if err != nil {
		return err
	}
	RabbitMQConn = conn

	// 建立通道
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	RabbitMQChannel = ch

	// 声明交换机和队列
	return declareExchangeAndQueue()
}

// 声明交换机和队列（结算落库队列只订阅成交事件）
func declareExchangeAndQueue() error {
	// 声明交换机
	err := RabbitMQChannel.ExchangeDeclare(
		MarketExchange, // 交换机名
		"topic",        // 类型
		true,           // 持久化
		false,          // 自动删除
		false,          // 内部
		false,          // 等待
		nil,            // 参数
	)
	if err != nil {
		return err
	}

	// 声明队列
	_, err = RabbitMQChannel.QueueDeclare(
		SettleQueue, // 队列名
		true,        // 持久化
		false,       // 自动删除
		false,       // 排他
		false,       // 等待
		nil,         // 参数
	)
	if err != nil {
		return err
	}

	// 绑定队列到交换机（只消费成交事件）
	return RabbitMQChannel.QueueBind(
		SettleQueue,
		RouteClaim,
		MarketExchange,
		false,
		nil,
	)
}

// PublishMarketEvent 发布市场事件（挂单/出价/成交/取消）
func PublishMarketEvent(ctx context.Context, routingKey string, event interface{}) error {
	// 序列化消息
	msg, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// 发布消息
	return RabbitMQChannel.Publish(
		MarketExchange, // 交换机名
		routingKey,     // 路由键
		false,          // 强制
		false,          // 立即
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         msg,
			DeliveryMode: amqp.Persistent, // 持久化
			Timestamp:    time.Now(),
		},
	)
}

// ConsumeSettleMsg 消费成交事件（结算落库）
func ConsumeSettleMsg(handler func(body []byte) error) error {
	msgs, err := RabbitMQChannel.Consume(
		SettleQueue, // 队列名
		"",          // 消费者标签
		false,       // 自动确认
		false,       // 排他
		false,       // 不本地
		false,       // 等待
		nil,         // 参数
	)
	if err != nil {
		return err
	}

	// 启动协程消费消息
	go func() {
		for d := range msgs {
			if err := handler(d.Body); err != nil {
				Logger.Error("处理结算消息失败", zap.Error(err))
				d.Nack(false, true) // 拒绝消息，重新入队
			} else {
				d.Ack(false) // 确认消息
			}
		}
	}()

	return nil
}

// CloseRabbitMQ 关闭RabbitMQ连接
func CloseRabbitMQ() {
	if RabbitMQChannel != nil {
		RabbitMQChannel.Close()
	}
	if RabbitMQConn != nil {
		RabbitMQConn.Close()
	}
}
