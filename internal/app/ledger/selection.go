package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Selection picks one member for a ledger write. In JSON it is either a
// bare id string or an object {"user_id": ..., "amount_paid": ...}.
type Selection struct {
	UserID     primitive.ObjectID
	AmountPaid float64
}

func (s *Selection) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var hex string
		if err := json.Unmarshal(data, &hex); err != nil {
			return err
		}
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			return fmt.Errorf("invalid member id %q", hex)
		}
		*s = Selection{UserID: id}
		return nil
	}

	var obj struct {
		UserID     string  `json:"user_id"`
		AmountPaid float64 `json:"amount_paid"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	id, err := primitive.ObjectIDFromHex(obj.UserID)
	if err != nil {
		return fmt.Errorf("invalid member id %q", obj.UserID)
	}
	*s = Selection{UserID: id, AmountPaid: obj.AmountPaid}
	return nil
}

// collapse drops repeated ids. The last amount given for an id wins; order
// follows first appearance.
func collapse(sel []Selection) ([]Selection, []primitive.ObjectID, error) {
	idx := make(map[primitive.ObjectID]int, len(sel))
	out := make([]Selection, 0, len(sel))
	for _, s := range sel {
		if s.AmountPaid < 0 {
			return nil, nil, ErrNegativeAmount
		}
		if i, ok := idx[s.UserID]; ok {
			out[i].AmountPaid = s.AmountPaid
			continue
		}
		idx[s.UserID] = len(out)
		out = append(out, s)
	}
	ids := make([]primitive.ObjectID, len(out))
	for i, s := range out {
		ids[i] = s.UserID
	}
	return out, ids, nil
}

// dedupe returns ids without repeats, in first-seen order.
func dedupe(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
