/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type batchSender func(context.Context, *pgx.Batch) pgx.BatchResults

// sendBatchExecAll sends batch and drains every result, closing the results
// even when an exec fails.
func sendBatchExecAll(ctx context.Context, batch *pgx.Batch, send batchSender, operation string) (err error) {
	if batch == nil || batch.Len() == 0 {
		return nil
	}

	br := send(ctx, batch)
	defer func() {
		if closeErr := br.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%s batch close: %w", operation, closeErr)
		}
	}()

	for i := 0; i < batch.Len(); i++ {
		if _, err = br.Exec(); err != nil {
			return mapError(fmt.Sprintf("%s batch exec (command %d)", operation, i), err)
		}
	}

	return nil
}

// linkTable describes a join table that is replaced as a whole.
type linkTable struct {
	table     string
	ownerCol  string
	targetCol string
	ordered   bool
}

var (
	backlogIPLinks        = linkTable{table: "backlog_ips", ownerCol: "backlog_id", targetCol: "ip_id", ordered: true}
	backlogComponentLinks = linkTable{table: "backlog_components", ownerCol: "backlog_id", targetCol: "component_id"}
	backlogSoftwareLinks  = linkTable{table: "backlog_software", ownerCol: "backlog_id", targetCol: "software_id"}
	hardwareIPLinks       = linkTable{table: "hardware_ips", ownerCol: "hardware_id", targetCol: "ip_id", ordered: true}
	hardwareSoftwareLinks = linkTable{table: "hardware_software", ownerCol: "hardware_id", targetCol: "software_id"}
	profileSoftwareLinks  = linkTable{table: "profile_software", ownerCol: "profile_id", targetCol: "software_id"}
	profileMemberLinks    = linkTable{table: "profile_members", ownerCol: "profile_id", targetCol: "it_user_id"}
	channelMemberLinks    = linkTable{table: "chat_channel_members", ownerCol: "channel_id", targetCol: "partner_id"}
)

// buildReplaceLinks queues a delete of owner's rows followed by one insert per target.
func buildReplaceLinks(l linkTable, owner int64, targets []int64) *pgx.Batch {
	batch := &pgx.Batch{}
	batch.Queue(fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, l.table, l.ownerCol), owner)

	seen := make(map[int64]struct{}, len(targets))

	for i, target := range targets {
		if _, dup := seen[target]; dup {
			continue
		}

		seen[target] = struct{}{}

		if l.ordered {
			batch.Queue(fmt.Sprintf(`INSERT INTO %s (%s, %s, position) VALUES ($1, $2, $3)`,
				l.table, l.ownerCol, l.targetCol), owner, target, i)

			continue
		}

		batch.Queue(fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES ($1, $2)`,
			l.table, l.ownerCol, l.targetCol), owner, target)
	}

	return batch
}

func (t *pgTx) replaceLinks(ctx context.Context, l linkTable, owner int64, targets []int64) error {
	return sendBatchExecAll(ctx, buildReplaceLinks(l, owner, targets), t.tx.SendBatch, "replace "+l.table)
}

func (t *pgTx) linkedIDs(ctx context.Context, l linkTable, owner int64) ([]int64, error) {
	order := l.targetCol
	if l.ordered {
		order = "position"
	}

	rows, err := t.tx.Query(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s`,
		l.targetCol, l.table, l.ownerCol, order), owner)
	if err != nil {
		return nil, mapError("list "+l.table, err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, mapError("scan "+l.table, err)
	}

	return ids, nil
}
