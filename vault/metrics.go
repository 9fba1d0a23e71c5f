// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vault

import "github.com/termvault/termvault/metrics"

var (
	metricOpCounter     = metrics.LazyLoadCounterVec("staking_op_count", []string{"op"})
	metricPoolBalance   = metrics.LazyLoadGauge("staking_pool_balance")
	metricTotalStaked   = metrics.LazyLoadGauge("staking_total_staked")
	metricPositionCount = metrics.LazyLoadGauge("staking_position_count")
)

// refreshGauges publishes the balance gauges. Values are token base units
// truncated to int64.
func (v *Vault) refreshGauges() {
	metricPoolBalance().Set(v.pool.Balance().Int64())
	metricTotalStaked().Set(v.ledger.TotalStaked().Int64())
	metricPositionCount().Set(int64(v.ledger.Count()))
}

// noteOp counts a committed operation and refreshes the gauges. Call under
// the write lock.
func (v *Vault) noteOp(op string) {
	metricOpCounter().AddWithLabel(1, map[string]string{"op": op})
	v.refreshGauges()
}
