package actors

import (
	stdctx "context"
	"encoding/json"
	"fmt"
	"time"

	"bipv-docs/internal/api"
	"bipv-docs/internal/database"
	"bipv-docs/internal/models"
	"bipv-docs/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Message types for ledger operations. Caller is the username taken from the
// request token.
type (
	InitLedgerMsg struct {
		Caller string
	}

	CreateAssetMsg struct {
		Caller string
		Asset  models.Asset
	}

	ReadAssetMsg struct {
		DocumentNo string
	}

	UpdateAssetMsg struct {
		Caller string
		Asset  models.Asset
	}

	DeleteAssetMsg struct {
		Caller     string
		DocumentNo string
	}

	AssetExistsMsg struct {
		DocumentNo string
	}

	TransferAssetMsg struct {
		Caller     string
		DocumentNo string
		NewOwner   string
	}

	GetAllAssetsMsg struct{}

	GetDeletedAssetsMsg struct{}

	GetCountsMsg struct{}
)

// Notifier pushes a payload to every live connection of a user.
type Notifier interface {
	SendToUser(username string, payload []byte)
}

// LedgerActor owns the world state of one namespace. All writes to that namespace
// go through its mailbox, so they are applied one at a time.
type LedgerActor struct {
	namespace string
	store     database.Store
	metrics   *utils.MetricsCollector
	notifier  Notifier
	timeout   time.Duration
	now       func() time.Time
}

func NewLedgerActor(namespace string, store database.Store, metrics *utils.MetricsCollector, notifier Notifier, timeout time.Duration) *LedgerActor {
	return &LedgerActor{
		namespace: namespace,
		store:     store,
		metrics:   metrics,
		notifier:  notifier,
		timeout:   timeout,
		now:       time.Now,
	}
}

func (a *LedgerActor) log() *logrus.Entry {
	return logrus.WithField("namespace", a.namespace)
}

// Receive handles incoming messages
func (a *LedgerActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		a.log().Debug("LedgerActor started")

	case *actor.Stopping:
		a.log().Debug("LedgerActor stopping")

	case *actor.Stopped:
		a.log().Debug("LedgerActor stopped")

	case *actor.Restarting:
		a.log().Warn("LedgerActor restarting")

	case *InitLedgerMsg:
		a.handleInitLedger(context, msg)
	case *CreateAssetMsg:
		a.handleCreateAsset(context, msg)
	case *ReadAssetMsg:
		a.handleReadAsset(context, msg)
	case *UpdateAssetMsg:
		a.handleUpdateAsset(context, msg)
	case *DeleteAssetMsg:
		a.handleDeleteAsset(context, msg)
	case *AssetExistsMsg:
		a.handleAssetExists(context, msg)
	case *TransferAssetMsg:
		a.handleTransferAsset(context, msg)
	case *GetAllAssetsMsg:
		a.handleGetAllAssets(context)
	case *GetDeletedAssetsMsg:
		a.handleGetDeletedAssets(context)
	case *GetCountsMsg:
		a.handleGetCounts(context)
	default:
		a.log().Warnf("LedgerActor: Unknown message type: %T", msg)
		if context.Sender() != nil {
			context.Respond(utils.NewAppError(utils.ErrMessageRejected, fmt.Sprintf("unsupported message %T", msg), nil))
		}
	}
}

func (a *LedgerActor) opContext() (stdctx.Context, stdctx.CancelFunc) {
	return stdctx.WithTimeout(stdctx.Background(), a.timeout)
}

func (a *LedgerActor) seedAssets() []*models.Asset {
	return []*models.Asset{
		{
			DocumentNo:   "671",
			DocumentSize: "1268 KB",
			DocumentLink: "https://www.google.com",
			OwnedBy:      "User1",
		},
		{
			DocumentNo:   "672",
			DocumentSize: "512 KB",
			DocumentLink: "https://www.facebook.com",
			OwnedBy:      "User2",
		},
	}
}

func (a *LedgerActor) handleInitLedger(context actor.Context, msg *InitLedgerMsg) {
	startTime := time.Now()
	ctx, cancel := a.opContext()
	defer cancel()

	assets := a.seedAssets()
	for _, asset := range assets {
		asset.DocType = models.AssetDocType
		if err := a.putAsset(ctx, asset); err != nil {
			context.Respond(err)
			return
		}
	}

	a.log().WithField("caller", msg.Caller).Infof("Ledger initialized with %d assets", len(assets))
	a.metrics.AddOperationLatency("init_ledger", time.Since(startTime))
	context.Respond(assets)
}

func (a *LedgerActor) handleCreateAsset(context actor.Context, msg *CreateAssetMsg) {
	startTime := time.Now()
	ctx, cancel := a.opContext()
	defer cancel()

	exists, appErr := a.exists(ctx, msg.Asset.DocumentNo)
	if appErr != nil {
		context.Respond(appErr)
		return
	}
	if exists {
		context.Respond(utils.NewAssetExistsError(msg.Asset.DocumentNo))
		return
	}

	asset := &models.Asset{
		DocumentNo:   msg.Asset.DocumentNo,
		DocumentName: msg.Asset.DocumentName,
		DocumentType: msg.Asset.DocumentType,
		DocumentSize: msg.Asset.DocumentSize,
		DocumentLink: msg.Asset.DocumentLink,
		OwnedBy:      msg.Caller,
	}
	asset.Touch(a.now())

	if appErr := a.putAsset(ctx, asset); appErr != nil {
		context.Respond(appErr)
		return
	}

	a.log().WithFields(logrus.Fields{"documentNo": asset.DocumentNo, "owner": asset.OwnedBy}).Info("Asset created")
	a.metrics.AddOperationLatency("create_asset", time.Since(startTime))
	context.Respond(asset)
}

func (a *LedgerActor) handleReadAsset(context actor.Context, msg *ReadAssetMsg) {
	startTime := time.Now()
	ctx, cancel := a.opContext()
	defer cancel()

	asset, appErr := a.readAsset(ctx, msg.DocumentNo)
	if appErr != nil {
		context.Respond(appErr)
		return
	}

	a.metrics.AddOperationLatency("read_asset", time.Since(startTime))
	context.Respond(asset)
}

func (a *LedgerActor) handleUpdateAsset(context actor.Context, msg *UpdateAssetMsg) {
	startTime := time.Now()
	ctx, cancel := a.opContext()
	defer cancel()

	current, appErr := a.readAsset(ctx, msg.Asset.DocumentNo)
	if appErr != nil {
		context.Respond(appErr)
		return
	}

	// Descriptive fields are overwritten; ownership and docType stay.
	current.DocumentName = msg.Asset.DocumentName
	current.DocumentType = msg.Asset.DocumentType
	current.DocumentSize = msg.Asset.DocumentSize
	current.DocumentLink = msg.Asset.DocumentLink
	current.Touch(a.now())

	if appErr := a.putAsset(ctx, current); appErr != nil {
		context.Respond(appErr)
		return
	}

	a.log().WithFields(logrus.Fields{"documentNo": current.DocumentNo, "caller": msg.Caller}).Info("Asset updated")
	a.metrics.AddOperationLatency("update_asset", time.Since(startTime))
	context.Respond(current)
}

func (a *LedgerActor) handleDeleteAsset(context actor.Context, msg *DeleteAssetMsg) {
	startTime := time.Now()
	ctx, cancel := a.opContext()
	defer cancel()

	current, appErr := a.readAsset(ctx, msg.DocumentNo)
	if appErr != nil {
		context.Respond(appErr)
		return
	}

	if err := a.store.DeleteState(ctx, a.namespace, msg.DocumentNo); err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to delete asset", err))
		return
	}

	rec := &models.DeletedAsset{
		ID:         uuid.New(),
		Namespace:  a.namespace,
		DocumentNo: msg.DocumentNo,
		Asset:      current,
		DeletedBy:  msg.Caller,
		DeletedAt:  a.now().UTC(),
	}
	if err := a.store.RecordDeletion(ctx, rec); err != nil {
		// The state is already gone; losing the log entry must not fail the delete.
		a.log().WithError(err).WithField("documentNo", msg.DocumentNo).Error("Failed to record deletion")
	}

	remaining, appErr := a.allAssets(ctx)
	if appErr != nil {
		context.Respond(appErr)
		return
	}

	a.log().WithFields(logrus.Fields{"documentNo": msg.DocumentNo, "caller": msg.Caller}).Info("Asset deleted")
	a.metrics.AddOperationLatency("delete_asset", time.Since(startTime))
	context.Respond(remaining)
}

func (a *LedgerActor) handleAssetExists(context actor.Context, msg *AssetExistsMsg) {
	ctx, cancel := a.opContext()
	defer cancel()

	exists, appErr := a.exists(ctx, msg.DocumentNo)
	if appErr != nil {
		context.Respond(appErr)
		return
	}
	context.Respond(exists)
}

func (a *LedgerActor) handleTransferAsset(context actor.Context, msg *TransferAssetMsg) {
	startTime := time.Now()
	ctx, cancel := a.opContext()
	defer cancel()

	asset, appErr := a.readAsset(ctx, msg.DocumentNo)
	if appErr != nil {
		context.Respond(appErr)
		return
	}

	previousOwner := asset.OwnedBy
	asset.OwnedBy = msg.NewOwner
	asset.Touch(a.now())

	if appErr := a.putAsset(ctx, asset); appErr != nil {
		context.Respond(appErr)
		return
	}

	a.log().WithFields(logrus.Fields{
		"documentNo": asset.DocumentNo,
		"from":       previousOwner,
		"to":         msg.NewOwner,
	}).Info("Asset transferred")

	if a.notifier != nil {
		payload, err := json.Marshal(api.Success("asset transferred", asset))
		if err != nil {
			a.log().WithError(err).Error("Failed to encode transfer notification")
		} else {
			a.notifier.SendToUser(msg.NewOwner, payload)
		}
	}

	a.metrics.AddOperationLatency("transfer_asset", time.Since(startTime))
	context.Respond(asset)
}

func (a *LedgerActor) handleGetAllAssets(context actor.Context) {
	startTime := time.Now()
	ctx, cancel := a.opContext()
	defer cancel()

	assets, appErr := a.allAssets(ctx)
	if appErr != nil {
		context.Respond(appErr)
		return
	}

	a.metrics.AddOperationLatency("get_all_assets", time.Since(startTime))
	context.Respond(assets)
}

func (a *LedgerActor) handleGetDeletedAssets(context actor.Context) {
	ctx, cancel := a.opContext()
	defer cancel()

	recs, err := a.store.GetDeletions(ctx, a.namespace)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to load deleted assets", err))
		return
	}
	context.Respond(recs)
}

func (a *LedgerActor) handleGetCounts(context actor.Context) {
	ctx, cancel := a.opContext()
	defer cancel()

	kvs, err := a.store.GetStateByRange(ctx, a.namespace, "", "")
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to count assets", err))
		return
	}
	context.Respond(len(kvs))
}

func (a *LedgerActor) exists(ctx stdctx.Context, documentNo string) (bool, *utils.AppError) {
	value, err := a.store.GetState(ctx, a.namespace, documentNo)
	if err != nil {
		return false, utils.NewAppError(utils.ErrDatabase, "Failed to read asset", err)
	}
	return len(value) > 0, nil
}

func (a *LedgerActor) readAsset(ctx stdctx.Context, documentNo string) (*models.Asset, *utils.AppError) {
	value, err := a.store.GetState(ctx, a.namespace, documentNo)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Failed to read asset", err)
	}
	if len(value) == 0 {
		return nil, utils.NewAssetNotFoundError(documentNo)
	}

	var asset models.Asset
	if err := json.Unmarshal(value, &asset); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Stored asset is not valid JSON", err)
	}
	return &asset, nil
}

func (a *LedgerActor) putAsset(ctx stdctx.Context, asset *models.Asset) *utils.AppError {
	value, err := models.CanonicalJSON(asset)
	if err != nil {
		return utils.NewAppError(utils.ErrInvalidInput, "Failed to encode asset", err)
	}
	if err := a.store.PutState(ctx, a.namespace, asset.DocumentNo, value); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "Failed to store asset", err)
	}
	return nil
}

// allAssets decodes every value in the namespace. Values that are not assets are
// returned as their raw string.
func (a *LedgerActor) allAssets(ctx stdctx.Context) ([]any, *utils.AppError) {
	kvs, err := a.store.GetStateByRange(ctx, a.namespace, "", "")
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Failed to list assets", err)
	}

	result := make([]any, 0, len(kvs))
	for _, kv := range kvs {
		var asset models.Asset
		if err := json.Unmarshal(kv.Value, &asset); err != nil {
			a.log().WithError(err).WithField("key", kv.Key).Warn("Non-asset value in world state")
			result = append(result, string(kv.Value))
			continue
		}
		result = append(result, &asset)
	}
	return result, nil
}
