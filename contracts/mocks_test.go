package contracts

import (
	"sort"
	"strings"
	"time"

	"github.com/golang/protobuf/ptypes/timestamp"
	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"github.com/hyperledger/fabric-protos-go/peer"
)

// In-memory doubles for the shim and client-identity interfaces. The real
// interfaces are embedded so the doubles stay compile-compatible with shim
// upgrades; only the methods the contracts touch are implemented, anything
// else panics loudly.

type mockEvent struct {
	Name    string
	Payload []byte
}

type mockStub struct {
	shim.ChaincodeStubInterface
	state   map[string][]byte
	history map[string][]*queryresult.KeyModification
	events  []mockEvent
	txID    string
	txTime  time.Time
}

func newMockStub() *mockStub {
	return &mockStub{
		state:   map[string][]byte{},
		history: map[string][]*queryresult.KeyModification{},
		txID:    "tx1",
		txTime:  time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

// setTx starts a new logical transaction for history/timestamp purposes.
func (s *mockStub) setTx(txID string, at time.Time) {
	s.txID = txID
	s.txTime = at
}

func (s *mockStub) protoTimestamp() *timestamp.Timestamp {
	return &timestamp.Timestamp{Seconds: s.txTime.Unix(), Nanos: int32(s.txTime.Nanosecond())}
}

func (s *mockStub) GetTxID() string {
	return s.txID
}

func (s *mockStub) GetTxTimestamp() (*timestamp.Timestamp, error) {
	return s.protoTimestamp(), nil
}

func (s *mockStub) GetState(key string) ([]byte, error) {
	value, ok := s.state[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), value...), nil
}

func (s *mockStub) PutState(key string, value []byte) error {
	stored := append([]byte(nil), value...)
	s.state[key] = stored
	s.history[key] = append(s.history[key], &queryresult.KeyModification{
		TxId:      s.txID,
		Timestamp: s.protoTimestamp(),
		Value:     append([]byte(nil), stored...),
	})
	return nil
}

func (s *mockStub) DelState(key string) error {
	if _, ok := s.state[key]; ok {
		delete(s.state, key)
		s.history[key] = append(s.history[key], &queryresult.KeyModification{
			TxId:      s.txID,
			Timestamp: s.protoTimestamp(),
			IsDelete:  true,
		})
	}
	return nil
}

func (s *mockStub) SetEvent(name string, payload []byte) error {
	s.events = append(s.events, mockEvent{Name: name, Payload: append([]byte(nil), payload...)})
	return nil
}

func (s *mockStub) lastEvent(name string) *mockEvent {
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Name == name {
			return &s.events[i]
		}
	}
	return nil
}

// Composite keys use the same null-byte framing as the real stub:
// \x00 objectType \x00 attr1 \x00 attr2 \x00 ...
const compositeKeyNamespace = "\x00"

func buildCompositeKey(objectType string, attributes []string) string {
	var b strings.Builder
	b.WriteString(compositeKeyNamespace)
	b.WriteString(objectType)
	b.WriteString("\x00")
	for _, attr := range attributes {
		b.WriteString(attr)
		b.WriteString("\x00")
	}
	return b.String()
}

func (s *mockStub) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	return buildCompositeKey(objectType, attributes), nil
}

func (s *mockStub) SplitCompositeKey(compositeKey string) (string, []string, error) {
	trimmed := strings.TrimPrefix(compositeKey, compositeKeyNamespace)
	components := strings.Split(trimmed, "\x00")
	// The trailing separator yields an empty final component.
	components = components[:len(components)-1]
	return components[0], components[1:], nil
}

func (s *mockStub) sortedKeys(start, end string) []string {
	var keys []string
	for key := range s.state {
		if start != "" && key < start {
			continue
		}
		if end != "" && key >= end {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (s *mockStub) kvsForKeys(keys []string) []*queryresult.KV {
	kvs := make([]*queryresult.KV, 0, len(keys))
	for _, key := range keys {
		kvs = append(kvs, &queryresult.KV{
			Key:   key,
			Value: append([]byte(nil), s.state[key]...),
		})
	}
	return kvs
}

func (s *mockStub) GetStateByRange(startKey, endKey string) (shim.StateQueryIteratorInterface, error) {
	return &stateIterator{kvs: s.kvsForKeys(s.sortedKeys(startKey, endKey))}, nil
}

func (s *mockStub) GetStateByRangeWithPagination(startKey, endKey string, pageSize int32,
	bookmark string) (shim.StateQueryIteratorInterface, *peer.QueryResponseMetadata, error) {

	keys := s.sortedKeys(startKey, endKey)
	if bookmark != "" {
		idx := sort.SearchStrings(keys, bookmark)
		keys = keys[idx:]
	}
	next := ""
	if int32(len(keys)) > pageSize {
		next = keys[pageSize]
		keys = keys[:pageSize]
	}
	metadata := &peer.QueryResponseMetadata{
		FetchedRecordsCount: int32(len(keys)),
		Bookmark:            next,
	}
	return &stateIterator{kvs: s.kvsForKeys(keys)}, metadata, nil
}

func (s *mockStub) GetStateByPartialCompositeKey(objectType string,
	attributes []string) (shim.StateQueryIteratorInterface, error) {

	prefix := buildCompositeKey(objectType, attributes)
	var keys []string
	for key := range s.state {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return &stateIterator{kvs: s.kvsForKeys(keys)}, nil
}

func (s *mockStub) GetHistoryForKey(key string) (shim.HistoryQueryIteratorInterface, error) {
	mods := make([]*queryresult.KeyModification, len(s.history[key]))
	copy(mods, s.history[key])
	return &historyIterator{mods: mods}, nil
}

type stateIterator struct {
	kvs []*queryresult.KV
	pos int
}

func (it *stateIterator) HasNext() bool {
	return it.pos < len(it.kvs)
}

func (it *stateIterator) Next() (*queryresult.KV, error) {
	kv := it.kvs[it.pos]
	it.pos++
	return kv, nil
}

func (it *stateIterator) Close() error {
	return nil
}

type historyIterator struct {
	mods []*queryresult.KeyModification
	pos  int
}

func (it *historyIterator) HasNext() bool {
	return it.pos < len(it.mods)
}

func (it *historyIterator) Next() (*queryresult.KeyModification, error) {
	mod := it.mods[it.pos]
	it.pos++
	return mod, nil
}

func (it *historyIterator) Close() error {
	return nil
}

type mockIdentity struct {
	cid.ClientIdentity
	id    string
	attrs map[string]string
}

func (m *mockIdentity) GetID() (string, error) {
	return m.id, nil
}

func (m *mockIdentity) GetAttributeValue(attrName string) (string, bool, error) {
	value, found := m.attrs[attrName]
	return value, found, nil
}

// testContext satisfies contractapi.TransactionContextInterface. A nil
// identity models the unauthenticated public-verification path: any
// identity access panics, proving the operation never consults it.
type testContext struct {
	stub     *mockStub
	identity *mockIdentity
}

func (c *testContext) GetStub() shim.ChaincodeStubInterface {
	return c.stub
}

func (c *testContext) GetClientIdentity() cid.ClientIdentity {
	if c.identity == nil {
		return nil
	}
	return c.identity
}

// newTestContext returns a context for the given caller identity and role
// over a fresh ledger.
func newTestContext(id string, role Role) (*testContext, *mockStub) {
	stub := newMockStub()
	return &testContext{
		stub:     stub,
		identity: &mockIdentity{id: id, attrs: map[string]string{roleAttribute: string(role)}},
	}, stub
}

// asCaller reuses an existing ledger under a different caller.
func asCaller(stub *mockStub, id string, role Role) *testContext {
	return &testContext{
		stub:     stub,
		identity: &mockIdentity{id: id, attrs: map[string]string{roleAttribute: string(role)}},
	}
}

// asAnonymous reuses an existing ledger with no client identity at all.
func asAnonymous(stub *mockStub) *testContext {
	return &testContext{stub: stub}
}
