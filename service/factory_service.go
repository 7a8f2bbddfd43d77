package service

import (
	"context"
	"math/big"
	"strings"

	"nft_market/dao"
	"nft_market/market"
	"nft_market/model"
	"nft_market/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FactoryService 合集注册表服务：以合集登记表落地工厂校验与分账器查询
// 同时实现引擎的FactoryVerifier与Splitter协作方接口
type FactoryService struct{}

// NewFactoryService 创建合集注册表服务
func NewFactoryService() *FactoryService {
	return &FactoryService{}
}

// RegisterCollectionReq 登记合集请求
type RegisterCollectionReq struct {
	ContractAddr string `json:"contract_addr" binding:"required"`
	CreatorAddr  string `json:"creator_addr" binding:"required"`
	Kind         int    `json:"kind"`
	HouseAsset   bool   `json:"house_asset"`
	SplitterAddr string `json:"splitter_addr"`
	RoyaltyBps   uint64 `json:"royalty_bps"`
	ChainID      int    `json:"chain_id"`
}

// RegisterCollection 登记合集（自营合集必须绑定分账器）
func (s *FactoryService) RegisterCollection(ctx context.Context, req RegisterCollectionReq) error {
	if req.HouseAsset && req.SplitterAddr == "" {
		return errors.New("自营合集必须绑定分账器地址")
	}

	col := &model.CollectionRecord{
		ContractAddr: strings.ToLower(req.ContractAddr),
		CreatorAddr:  strings.ToLower(req.CreatorAddr),
		Kind:         req.Kind,
		HouseAsset:   req.HouseAsset,
		SplitterAddr: strings.ToLower(req.SplitterAddr),
		RoyaltyBps:   req.RoyaltyBps,
		ChainID:      req.ChainID,
	}
	if err := dao.CreateCollection(col); err != nil {
		utils.Logger.Error("登记合集失败", zap.String("contract", req.ContractAddr), zap.Error(err))
		return errors.Wrap(err, "register collection")
	}
	return nil
}

// lookup 查合集登记记录；未登记返回nil而非错误
func (s *FactoryService) lookup(token common.Address) (*model.CollectionRecord, error) {
	col, err := dao.GetCollectionByAddr(strings.ToLower(token.Hex()))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return col, nil
}

// IsAuthorizedCreator 调用方是否为该合集在册创作者
func (s *FactoryService) IsAuthorizedCreator(ctx context.Context, token, caller common.Address) (bool, error) {
	col, err := s.lookup(token)
	if err != nil || col == nil {
		return false, err
	}
	return strings.EqualFold(col.CreatorAddr, caller.Hex()), nil
}

// CollectionType 合集变体类型；未登记按极简款处理
func (s *FactoryService) CollectionType(ctx context.Context, token common.Address) (market.CollectionKind, error) {
	col, err := s.lookup(token)
	if err != nil || col == nil {
		return market.CollectionMinimal, err
	}
	return market.CollectionKind(col.Kind), nil
}

// IsHouseOriginated 是否为经本平台工厂部署的自营合集
func (s *FactoryService) IsHouseOriginated(ctx context.Context, token common.Address) (bool, error) {
	col, err := s.lookup(token)
	if err != nil || col == nil {
		return false, err
	}
	return col.HouseAsset, nil
}

// SplitterOf 合集绑定的分账器地址
func (s *FactoryService) SplitterOf(ctx context.Context, token common.Address) (common.Address, error) {
	col, err := s.lookup(token)
	if err != nil {
		return common.Address{}, err
	}
	if col == nil || col.SplitterAddr == "" {
		return common.Address{}, errors.New("合集未绑定分账器")
	}
	return common.HexToAddress(col.SplitterAddr), nil
}

// CreditRoyalty 版税回流记账：链上划转已由引擎完成，这里只记录日志
// 分账器合约收款后自行在创作者/大使间分配
func (s *FactoryService) CreditRoyalty(ctx context.Context, splitter, currency common.Address, amount *big.Int) error {
	utils.Logger.Info("版税回流分账器",
		zap.String("splitter", splitter.Hex()),
		zap.String("currency", currency.Hex()),
		zap.String("amount", amount.String()))
	return nil
}
