package market

import "errors"

// 引擎错误定义：所有可变更状态的操作要么完整提交，要么带具体错误整体回退
var (
	// -------- 权限类错误（调用方缺少角色/所有权，不可重试） --------
	ErrNotAuthorized = errors.New("NOT_AUTHORIZED")  // 挂单者非创作者且无市场授权
	ErrAccessDenied  = errors.New("ACCESS_DENIED")   // 非卖家/中标者/平台触发受限操作
	ErrUnauthorized  = errors.New("UNAUTHORIZED")    // 非合约所有者调用管理接口

	// -------- 参数类错误（请求不合法，调用方需修正输入） --------
	ErrWrongPrice    = errors.New("WRONG_PRICE")     // 价格为零/支付金额不符/出价不足
	ErrNeedMoreTime  = errors.New("NEED_MORE_TIME")  // 订单时长超出[最小,最大]区间
	ErrExceedsMaxEP  = errors.New("EXCEEDS_MAX_EP")  // 荷兰拍终止价高于起始价
	ErrInvalidBidder = errors.New("INVALID_BIDDER")  // 卖家对自己的拍卖出价
	ErrEAOnly        = errors.New("EA_ONLY")         // bid仅支持英式拍卖订单
	ErrNotBuyable    = errors.New("NOT_BUYABLE")     // buy不支持英式拍卖订单

	// -------- 生命周期冲突（订单状态与调用方假设不符，需重新查询） --------
	ErrCanceledOrder = errors.New("CANCELED_ORDER")  // 订单已取消
	ErrSoldToken     = errors.New("SOLD_TOKEN")      // 订单已成交
	ErrBidExists     = errors.New("BID_EXISTS")      // 英式拍卖已有出价，禁止取消
	ErrTimeout       = errors.New("TIMEOUT")         // 订单已过期
	ErrOrderNotFound = errors.New("ORDER_NOT_FOUND") // 订单不存在或已被强制移除

	// -------- 资金类错误 --------
	ErrInsufficientERC20 = errors.New("INSUFFICIENT_ERC20") // 支付代币余额/授权不足
	ErrNoFunds           = errors.New("NO_FUNDS")           // 无可提取资金

	// -------- 运行状态类错误 --------
	ErrPaused   = errors.New("PAUSED")   // 市场已暂停，公共操作全部拒绝
	ErrUnpaused = errors.New("UNPAUSED") // 市场未暂停，whenPaused类操作拒绝
)
