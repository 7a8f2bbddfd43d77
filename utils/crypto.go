package utils

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// hashPersonalMessage 按EIP-191对消息做前缀哈希（与钱包personal_sign一致）
func hashPersonalMessage(data []byte) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(data), data)
	return crypto.Keccak256([]byte(prefixed))
}

// VerifySignature 验证钱包签名：恢复签名公钥并比对地址
// params: userAddr-用户地址, data-待签数据, signature-0x开头的65字节签名
func VerifySignature(userAddr, data, signature string) bool {
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != 65 {
		return false
	}
	// 钱包签名的v为27/28，恢复时需归一到0/1
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	hash := hashPersonalMessage([]byte(data))
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return false
	}

	recovered := crypto.PubkeyToAddress(*pubKey)
	return strings.EqualFold(recovered.Hex(), common.HexToAddress(userAddr).Hex())
}
