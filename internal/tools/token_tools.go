package tools

import (
	"hydra-fanout-sol/internal/consts"
	"hydra-fanout-sol/internal/types"
)

// IsSPLTokenProgram 判断账户 owner 是否为标准 SPL Token 程序（v1 / Token-2022）
func IsSPLTokenProgram(programId types.Pubkey) bool {
	return programId == consts.TokenProgram || programId == consts.TokenProgram2022
}
