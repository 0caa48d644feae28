package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type sentMessage struct {
	opCode     int64
	data       []byte
	recipients []runtime.Presence
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	messages     []sentMessage
	labelUpdates int
	lastLabel    string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.messages = append(md.messages, sentMessage{
		opCode:     opCode,
		data:       append([]byte(nil), data...),
		recipients: presences,
	})
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates++
	md.lastLabel = label
	return nil
}

// testPresence implements runtime.Presence; only the user id is used.
type testPresence struct {
	runtime.Presence
	userID string
}

func (p testPresence) GetUserId() string { return p.userID }

// testMatchData implements runtime.MatchData for MatchLoop tests.
type testMatchData struct {
	runtime.MatchData
	userID string
	opCode int64
	data   []byte
}

func (m testMatchData) GetUserId() string { return m.userID }
func (m testMatchData) GetOpCode() int64  { return m.opCode }
func (m testMatchData) GetData() []byte   { return m.data }

// fakeNakama implements the storage, wallet, match and event calls the
// adapters use. Unused methods panic through the nil embedded interface.
type fakeNakama struct {
	runtime.NakamaModule
	objects  map[string]*api.StorageObject
	wallets  map[string]map[string]int64
	events   []*api.Event
	signals  []string
	created  []string
	updates  int
	multiErr error

	listCalls int
}

func newFakeNakama() *fakeNakama {
	return &fakeNakama{
		objects: map[string]*api.StorageObject{},
		wallets: map[string]map[string]int64{},
	}
}

func objectKey(collection, userID, key string) string {
	return collection + "/" + userID + "/" + key
}

func (f *fakeNakama) StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error) {
	var out []*api.StorageObject
	for _, r := range reads {
		if obj, ok := f.objects[objectKey(r.Collection, r.UserID, r.Key)]; ok {
			out = append(out, obj)
		}
	}
	return out, nil
}

func (f *fakeNakama) StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error) {
	_, _, err := f.MultiUpdate(ctx, nil, writes, nil, nil, false)
	return nil, err
}

func (f *fakeNakama) StorageList(ctx context.Context, callerID, userID, collection string, limit int, cursor string) ([]*api.StorageObject, string, error) {
	var matched []*api.StorageObject
	for _, obj := range f.objects {
		if obj.Collection == collection && obj.UserId == userID {
			matched = append(matched, obj)
		}
	}
	// Nakama lists in key order; the cursor is the offset of the next page.
	sort.Slice(matched, func(i, j int) bool { return matched[i].Key < matched[j].Key })
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("bad cursor %q", cursor)
		}
		start = n
	}
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	next := ""
	if end < len(matched) {
		next = strconv.Itoa(end)
	}
	f.listCalls++
	return matched[start:end], next, nil
}

func (f *fakeNakama) checkVersion(key, version string) error {
	existing, ok := f.objects[key]
	switch {
	case version == "":
		return nil
	case version == "*":
		if ok {
			return runtime.ErrStorageRejectedVersion
		}
	case !ok || existing.Version != version:
		return runtime.ErrStorageRejectedVersion
	}
	return nil
}

func (f *fakeNakama) MultiUpdate(ctx context.Context, accountUpdates []*runtime.AccountUpdate, storageWrites []*runtime.StorageWrite, storageDeletes []*runtime.StorageDelete, walletUpdates []*runtime.WalletUpdate, updateLedger bool) ([]*api.StorageObjectAck, []*runtime.WalletUpdateResult, error) {
	if f.multiErr != nil {
		return nil, nil, f.multiErr
	}
	for _, w := range storageWrites {
		if err := f.checkVersion(objectKey(w.Collection, w.UserID, w.Key), w.Version); err != nil {
			return nil, nil, err
		}
	}
	for _, d := range storageDeletes {
		if err := f.checkVersion(objectKey(d.Collection, d.UserID, d.Key), d.Version); err != nil {
			return nil, nil, err
		}
	}
	for _, u := range walletUpdates {
		for asset, amount := range u.Changeset {
			if f.wallets[u.UserID][asset]+amount < 0 {
				return nil, nil, errors.New("wallet would go negative")
			}
		}
	}

	for _, w := range storageWrites {
		f.updates++
		f.objects[objectKey(w.Collection, w.UserID, w.Key)] = &api.StorageObject{
			Collection: w.Collection,
			Key:        w.Key,
			UserId:     w.UserID,
			Value:      w.Value,
			Version:    strconv.Itoa(f.updates),
		}
	}
	for _, d := range storageDeletes {
		delete(f.objects, objectKey(d.Collection, d.UserID, d.Key))
	}
	for _, u := range walletUpdates {
		if f.wallets[u.UserID] == nil {
			f.wallets[u.UserID] = map[string]int64{}
		}
		for asset, amount := range u.Changeset {
			f.wallets[u.UserID][asset] += amount
		}
	}
	return nil, nil, nil
}

func (f *fakeNakama) AccountGetId(ctx context.Context, userID string) (*api.Account, error) {
	wallet, err := json.Marshal(f.wallets[userID])
	if err != nil {
		return nil, err
	}
	return &api.Account{Wallet: string(wallet)}, nil
}

func (f *fakeNakama) MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error) {
	id := fmt.Sprintf("match-%d.node", len(f.created)+1)
	f.created = append(f.created, id)
	return id, nil
}

func (f *fakeNakama) MatchSignal(ctx context.Context, id string, data string) (string, error) {
	f.signals = append(f.signals, data)
	return "", nil
}

func (f *fakeNakama) Event(ctx context.Context, evt *api.Event) error {
	f.events = append(f.events, evt)
	return nil
}

func (f *fakeNakama) AccountUpdateId(ctx context.Context, userID, username string, metadata map[string]interface{}, displayName, timezone, location, langTag, avatarUrl string) error {
	return nil
}

// fakeInitializer captures registered RPCs.
type fakeInitializer struct {
	runtime.Initializer
	rpcs map[string]rpcFunc
}

func (fi *fakeInitializer) RegisterRpc(id string, fn func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error)) error {
	if fi.rpcs == nil {
		fi.rpcs = map[string]rpcFunc{}
	}
	fi.rpcs[id] = fn
	return nil
}
