package manager

// DoPulse runs one simulation tick: the ledger re-reads the host pools, then every
// resident object runs its own streaming update.
func (m *Manager) DoPulse() {
	m.tick++
	m.ledger.Refresh()

	// objects may stream each other out while pulsing
	for _, obj := range m.registry.Residents() {
		if !m.registry.IsResident(obj) {
			continue
		}
		if !obj.HasGameObject() {
			m.logger.Error("Resident object has no game object, skipping",
				"id", obj.ID(), "model", obj.Model(), "tick", m.tick)
			continue
		}
		obj.StreamedInPulse()
	}

	if err := m.registry.CheckConsistency(); err != nil {
		m.logger.Error("Resident counts out of sync, reconciling", "error", err, "tick", m.tick)
		m.registry.Reconcile()
		m.ledger.Refresh()
	}
	m.publish()
}

// Tick returns the number of pulses run so far.
func (m *Manager) Tick() uint64 {
	return m.tick
}
