// Package token is the builtin token program: mints, token accounts,
// minting and transfers. Market programs move balances through it by
// cross-program invocation, the same way the real programs CPI into
// the chain's token program, so token movement shows up in measured
// compute units.
package token

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/dropset/cubench/runtime"
)

// Account data sizes.
const (
	MintLen    = 1 + 8 + 32
	AccountLen = 32 + 32 + 8
)

// Instruction tags.
const (
	tagInitMint byte = iota
	tagInitAccount
	tagMintTo
	tagTransfer
)

// Install registers the token processor with the bank.
func Install(b *runtime.Bank) {
	b.Register(runtime.TokenProgramID, process)
}

// Mint is the decoded state of a mint account.
type Mint struct {
	Decimals  uint8
	Supply    uint64
	Authority runtime.Pubkey
}

// Account is the decoded state of a token account.
type Account struct {
	Mint   runtime.Pubkey
	Owner  runtime.Pubkey
	Amount uint64
}

func decodeMint(data []byte) (Mint, error) {
	if len(data) != MintLen {
		return Mint{}, errors.Wrapf(runtime.ErrInvalidData, "mint account size %d", len(data))
	}
	var m Mint
	m.Decimals = data[0]
	m.Supply = binary.LittleEndian.Uint64(data[1:9])
	copy(m.Authority[:], data[9:41])
	return m, nil
}

func encodeMint(m Mint, data []byte) {
	data[0] = m.Decimals
	binary.LittleEndian.PutUint64(data[1:9], m.Supply)
	copy(data[9:41], m.Authority[:])
}

// DecodeAccount decodes a token account's data.
func DecodeAccount(data []byte) (Account, error) {
	if len(data) != AccountLen {
		return Account{}, errors.Wrapf(runtime.ErrInvalidData, "token account size %d", len(data))
	}
	var a Account
	copy(a.Mint[:], data[:32])
	copy(a.Owner[:], data[32:64])
	a.Amount = binary.LittleEndian.Uint64(data[64:72])
	return a, nil
}

func encodeAccount(a Account, data []byte) {
	copy(data[:32], a.Mint[:])
	copy(data[32:64], a.Owner[:])
	binary.LittleEndian.PutUint64(data[64:72], a.Amount)
}

// InitMint builds an instruction initializing a mint account.
func InitMint(mint, authority runtime.Pubkey, decimals uint8) runtime.Instruction {
	data := make([]byte, 1+1+32)
	data[0] = tagInitMint
	data[1] = decimals
	copy(data[2:34], authority[:])
	return runtime.Instruction{
		ProgramID: runtime.TokenProgramID,
		Accounts:  []runtime.AccountMeta{runtime.MetaWritable(mint)},
		Data:      data,
	}
}

// InitAccount builds an instruction initializing a token account for
// the given mint and owner.
func InitAccount(account, mint, owner runtime.Pubkey) runtime.Instruction {
	data := make([]byte, 1+32+32)
	data[0] = tagInitAccount
	copy(data[1:33], mint[:])
	copy(data[33:65], owner[:])
	return runtime.Instruction{
		ProgramID: runtime.TokenProgramID,
		Accounts:  []runtime.AccountMeta{runtime.MetaWritable(account)},
		Data:      data,
	}
}

// MintTo builds an instruction minting amount to dest, signed by the
// mint authority.
func MintTo(mint, dest, authority runtime.Pubkey, amount uint64) runtime.Instruction {
	data := make([]byte, 1+8)
	data[0] = tagMintTo
	binary.LittleEndian.PutUint64(data[1:9], amount)
	return runtime.Instruction{
		ProgramID: runtime.TokenProgramID,
		Accounts: []runtime.AccountMeta{
			runtime.MetaWritable(mint),
			runtime.MetaWritable(dest),
			runtime.MetaSigner(authority),
		},
		Data: data,
	}
}

// Transfer builds an instruction moving amount between token
// accounts, signed by the source owner.
func Transfer(src, dst, owner runtime.Pubkey, amount uint64) runtime.Instruction {
	data := make([]byte, 1+8)
	data[0] = tagTransfer
	binary.LittleEndian.PutUint64(data[1:9], amount)
	return runtime.Instruction{
		ProgramID: runtime.TokenProgramID,
		Accounts: []runtime.AccountMeta{
			runtime.MetaWritable(src),
			runtime.MetaWritable(dst),
			runtime.MetaSigner(owner),
		},
		Data: data,
	}
}

func process(ic *runtime.InvokeContext) error {
	data := ic.Data()
	if len(data) == 0 {
		return errors.Wrap(runtime.ErrInvalidData, "empty token instruction")
	}
	switch data[0] {
	case tagInitMint:
		return doInitMint(ic, data[1:])
	case tagInitAccount:
		return doInitAccount(ic, data[1:])
	case tagMintTo:
		return doMintTo(ic, data[1:])
	case tagTransfer:
		return doTransfer(ic, data[1:])
	default:
		return errors.Wrapf(runtime.ErrInvalidData, "token tag %d", data[0])
	}
}

func doInitMint(ic *runtime.InvokeContext, args []byte) error {
	if len(args) != 1+32 {
		return errors.Wrap(runtime.ErrInvalidData, "init mint args")
	}
	if err := ic.Charge(runtime.CUTokenInitCost); err != nil {
		return err
	}
	acct, err := ic.WritableAccount(0)
	if err != nil {
		return err
	}
	if len(acct.Data) != MintLen {
		return errors.Wrapf(runtime.ErrInvalidData, "mint account size %d", len(acct.Data))
	}
	var m Mint
	m.Decimals = args[0]
	copy(m.Authority[:], args[1:33])
	encodeMint(m, acct.Data)
	return nil
}

func doInitAccount(ic *runtime.InvokeContext, args []byte) error {
	if len(args) != 32+32 {
		return errors.Wrap(runtime.ErrInvalidData, "init account args")
	}
	if err := ic.Charge(runtime.CUTokenInitCost); err != nil {
		return err
	}
	acct, err := ic.WritableAccount(0)
	if err != nil {
		return err
	}
	if len(acct.Data) != AccountLen {
		return errors.Wrapf(runtime.ErrInvalidData, "token account size %d", len(acct.Data))
	}
	var a Account
	copy(a.Mint[:], args[:32])
	copy(a.Owner[:], args[32:64])
	encodeAccount(a, acct.Data)
	return nil
}

func doMintTo(ic *runtime.InvokeContext, args []byte) error {
	if len(args) != 8 {
		return errors.Wrap(runtime.ErrInvalidData, "mint to args")
	}
	amount := binary.LittleEndian.Uint64(args)
	if err := ic.Charge(runtime.CUTokenMintToCost); err != nil {
		return err
	}
	mintAcct, err := ic.WritableAccount(0)
	if err != nil {
		return err
	}
	destAcct, err := ic.WritableAccount(1)
	if err != nil {
		return err
	}
	mint, err := decodeMint(mintAcct.Data)
	if err != nil {
		return err
	}
	authority, err := ic.Key(2)
	if err != nil {
		return err
	}
	if mint.Authority != authority {
		return errors.Wrap(runtime.ErrMissingSigner, "mint authority mismatch")
	}
	if err := ic.RequireSigner(2); err != nil {
		return err
	}
	dest, err := DecodeAccount(destAcct.Data)
	if err != nil {
		return err
	}
	mint.Supply += amount
	dest.Amount += amount
	encodeMint(mint, mintAcct.Data)
	encodeAccount(dest, destAcct.Data)
	return nil
}

func doTransfer(ic *runtime.InvokeContext, args []byte) error {
	if len(args) != 8 {
		return errors.Wrap(runtime.ErrInvalidData, "transfer args")
	}
	amount := binary.LittleEndian.Uint64(args)
	if err := ic.Charge(runtime.CUTokenTransferCost); err != nil {
		return err
	}
	srcAcct, err := ic.WritableAccount(0)
	if err != nil {
		return err
	}
	dstAcct, err := ic.WritableAccount(1)
	if err != nil {
		return err
	}
	src, err := DecodeAccount(srcAcct.Data)
	if err != nil {
		return err
	}
	dst, err := DecodeAccount(dstAcct.Data)
	if err != nil {
		return err
	}
	owner, err := ic.Key(2)
	if err != nil {
		return err
	}
	if src.Owner != owner {
		return errors.Wrap(runtime.ErrMissingSigner, "token owner mismatch")
	}
	if err := ic.RequireSigner(2); err != nil {
		return err
	}
	if src.Amount < amount {
		return errors.Wrap(runtime.ErrInsufficientFunds, "token transfer")
	}
	src.Amount -= amount
	dst.Amount += amount
	encodeAccount(src, srcAcct.Data)
	encodeAccount(dst, dstAcct.Data)
	return nil
}
