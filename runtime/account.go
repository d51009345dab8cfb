package runtime

// Account is the durable state attached to one address.
type Account struct {
	Lamports   uint64
	Data       []byte
	Owner      Pubkey
	Executable bool
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	c := *a
	c.Data = append([]byte(nil), a.Data...)
	return &c
}

// AccountMeta names one account an instruction touches and how.
type AccountMeta struct {
	Pubkey   Pubkey
	Signer   bool
	Writable bool
}

// Meta returns a read-only AccountMeta.
func Meta(p Pubkey) AccountMeta {
	return AccountMeta{Pubkey: p}
}

// MetaSigner returns a read-only signer AccountMeta.
func MetaSigner(p Pubkey) AccountMeta {
	return AccountMeta{Pubkey: p, Signer: true}
}

// MetaWritable returns a writable AccountMeta.
func MetaWritable(p Pubkey) AccountMeta {
	return AccountMeta{Pubkey: p, Writable: true}
}

// MetaWritableSigner returns a writable signer AccountMeta.
func MetaWritableSigner(p Pubkey) AccountMeta {
	return AccountMeta{Pubkey: p, Signer: true, Writable: true}
}

// Instruction is one program invocation: the program to run, the
// accounts it may touch, and its serialized arguments.
type Instruction struct {
	ProgramID Pubkey
	Accounts  []AccountMeta
	Data      []byte
}

// Transaction is an ordered list of instructions executed atomically
// on behalf of a payer. The same Transaction value is passed to both
// Simulate and Commit, so the two runs cannot diverge in payload or
// account list.
type Transaction struct {
	Payer        Pubkey
	Instructions []Instruction
}

// NewTransaction builds a single- or multi-instruction transaction.
func NewTransaction(payer Pubkey, ixs ...Instruction) Transaction {
	return Transaction{Payer: payer, Instructions: ixs}
}

// TxMeta is the execution metadata for one transaction.
type TxMeta struct {
	CUConsumed uint64
	Logs       []string
}
