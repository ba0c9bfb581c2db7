package model

// Outcome は書き込み操作が対象ドキュメントを見つけたかどうかを表す。
type Outcome string

const (
	// OutcomeFound は1件以上のドキュメントが一致したことを示す。
	OutcomeFound Outcome = "found"
	// OutcomeNotFound は一致するドキュメントがなかったことを示す。
	// エラーではなく成功扱いの無操作である。
	OutcomeNotFound Outcome = "not_found"
)

// InsertResult は挿入操作の結果。
type InsertResult struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

// UpdateResult は更新・アップサート操作の結果。
// MatchedCountが0でもエラーではない。
type UpdateResult struct {
	Acknowledged  bool    `json:"acknowledged"`
	MatchedCount  int64   `json:"matchedCount"`
	ModifiedCount int64   `json:"modifiedCount"`
	UpsertedCount int64   `json:"upsertedCount"`
	UpsertedID    string  `json:"upsertedId,omitempty"`
	Outcome       Outcome `json:"outcome"`
}

// DeleteResult は削除操作の結果。
// DeletedCountが0でもエラーではない（冪等）。
type DeleteResult struct {
	Acknowledged bool    `json:"acknowledged"`
	DeletedCount int64   `json:"deletedCount"`
	Outcome      Outcome `json:"outcome"`
}

// NewInsertResult は挿入結果を生成する。
func NewInsertResult(id string) *InsertResult {
	return &InsertResult{Acknowledged: true, InsertedID: id}
}

// NewUpdateResult は一致件数・変更件数から更新結果を生成する。
func NewUpdateResult(matched, modified int64) *UpdateResult {
	return &UpdateResult{
		Acknowledged:  true,
		MatchedCount:  matched,
		ModifiedCount: modified,
		Outcome:       outcomeOf(matched),
	}
}

// NewUpsertedResult は新規作成されたアップサートの結果を生成する。
func NewUpsertedResult(id string) *UpdateResult {
	return &UpdateResult{
		Acknowledged:  true,
		UpsertedCount: 1,
		UpsertedID:    id,
		Outcome:       OutcomeFound,
	}
}

// NewDeleteResult は削除件数から削除結果を生成する。
func NewDeleteResult(deleted int64) *DeleteResult {
	return &DeleteResult{
		Acknowledged: true,
		DeletedCount: deleted,
		Outcome:      outcomeOf(deleted),
	}
}

// Found は1件以上が一致またはアップサートされたかを返す。
func (r *UpdateResult) Found() bool {
	return r.MatchedCount > 0 || r.UpsertedCount > 0
}

// Found は1件以上が削除されたかを返す。
func (r *DeleteResult) Found() bool {
	return r.DeletedCount > 0
}

func outcomeOf(n int64) Outcome {
	if n > 0 {
		return OutcomeFound
	}
	return OutcomeNotFound
}
