package runtime

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// System program instruction tags.
const (
	sysCreateAccount byte = iota
	sysTransfer
)

// SystemCreateAccount builds a system instruction allocating a new
// account with the given space and owner, funded by payer.
func SystemCreateAccount(payer, newAccount, owner Pubkey, space int, lamports uint64) Instruction {
	data := make([]byte, 1+32+8+8)
	data[0] = sysCreateAccount
	copy(data[1:33], owner[:])
	binary.LittleEndian.PutUint64(data[33:41], uint64(space))
	binary.LittleEndian.PutUint64(data[41:49], lamports)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			MetaWritableSigner(payer),
			MetaWritable(newAccount),
		},
		Data: data,
	}
}

// SystemTransfer builds a lamport transfer instruction.
func SystemTransfer(from, to Pubkey, lamports uint64) Instruction {
	data := make([]byte, 1+8)
	data[0] = sysTransfer
	binary.LittleEndian.PutUint64(data[1:9], lamports)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			MetaWritableSigner(from),
			MetaWritable(to),
		},
		Data: data,
	}
}

func processSystem(ic *InvokeContext) error {
	data := ic.Data()
	if len(data) == 0 {
		return errors.Wrap(ErrInvalidData, "empty system instruction")
	}
	switch data[0] {
	case sysCreateAccount:
		return sysDoCreateAccount(ic, data[1:])
	case sysTransfer:
		return sysDoTransfer(ic, data[1:])
	default:
		return errors.Wrapf(ErrInvalidData, "system tag %d", data[0])
	}
}

func sysDoCreateAccount(ic *InvokeContext, args []byte) error {
	if len(args) != 32+8+8 {
		return errors.Wrap(ErrInvalidData, "create account args")
	}
	var owner Pubkey
	copy(owner[:], args[:32])
	space := int(binary.LittleEndian.Uint64(args[32:40]))
	lamports := binary.LittleEndian.Uint64(args[40:48])

	if err := ic.RequireSigner(0); err != nil {
		return err
	}
	payer, err := ic.WritableAccount(0)
	if err != nil {
		return err
	}
	if err := ic.Charge(CUCreateAccountCost + uint64(space)*CUAllocByteCost); err != nil {
		return err
	}
	if payer.Lamports < lamports {
		return errors.Wrap(ErrInsufficientFunds, "create account")
	}
	newKey, err := ic.Key(1)
	if err != nil {
		return err
	}
	if err := ic.createAccount(newKey, owner, space, lamports); err != nil {
		return err
	}
	payer.Lamports -= lamports
	return nil
}

func sysDoTransfer(ic *InvokeContext, args []byte) error {
	if len(args) != 8 {
		return errors.Wrap(ErrInvalidData, "transfer args")
	}
	lamports := binary.LittleEndian.Uint64(args)

	if err := ic.RequireSigner(0); err != nil {
		return err
	}
	from, err := ic.WritableAccount(0)
	if err != nil {
		return err
	}
	to, err := ic.WritableAccount(1)
	if err != nil {
		return err
	}
	if err := ic.Charge(CUTransferCost); err != nil {
		return err
	}
	if from.Lamports < lamports {
		return errors.Wrap(ErrInsufficientFunds, "transfer")
	}
	from.Lamports -= lamports
	to.Lamports += lamports
	return nil
}
