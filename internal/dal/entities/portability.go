package entities

import (
	"strconv"
	"time"
)

type PortabilityEntity struct {
	ID              int64      `db:"id"`
	PortID          string     `db:"port_id"`
	FolioID         string     `db:"folio_id"`
	State           string     `db:"state"`
	PortType        string     `db:"port_type"`
	SubscriberType  string     `db:"subscriber_type"`
	RecoveryFlag    string     `db:"recovery_flag"`
	DIDA            string     `db:"dida"`
	DCR             string     `db:"dcr"`
	RIDA            string     `db:"rida"`
	RCR             string     `db:"rcr"`
	SubsReqTime     *time.Time `db:"subs_req_time"`
	ReqPortExecDate *time.Time `db:"req_port_exec_date"`
	PortExecDate    *time.Time `db:"port_exec_date"`
	T1ExpiresAt     *time.Time `db:"t1_expires_at"`
	T3ExpiresAt     *time.Time `db:"t3_expires_at"`
	T4ExpiresAt     *time.Time `db:"t4_expires_at"`
	T5ExpiresAt     *time.Time `db:"t5_expires_at"`
	PIN             *string    `db:"pin"`
	Comments        *string    `db:"comments"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

func (e *PortabilityEntity) StringID() string {
	return strconv.FormatInt(e.ID, 10)
}

// ScanTargets lists the destinations in the column order used by every portability query.
func (e *PortabilityEntity) ScanTargets() []any {
	return []any{
		&e.ID, &e.PortID, &e.FolioID, &e.State, &e.PortType, &e.SubscriberType, &e.RecoveryFlag,
		&e.DIDA, &e.DCR, &e.RIDA, &e.RCR,
		&e.SubsReqTime, &e.ReqPortExecDate, &e.PortExecDate,
		&e.T1ExpiresAt, &e.T3ExpiresAt, &e.T4ExpiresAt, &e.T5ExpiresAt,
		&e.PIN, &e.Comments, &e.CreatedAt, &e.UpdatedAt,
	}
}

type PortabilityNumberEntity struct {
	ID            int64   `db:"id"`
	PortabilityID int64   `db:"portability_id"`
	MSISDN        string  `db:"msisdn"`
	Status        string  `db:"status"`
	RejectReason  *string `db:"reject_reason"`
}
