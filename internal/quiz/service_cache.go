package quiz

// Cache-specific helpers are isolated here so service.go can focus on orchestration.

// maxCachedUsers bounds the stats cache; it is dropped wholesale when full
// and rebuilt from the store on demand.
const maxCachedUsers = 1024

func (s *Service) getCachedStats(userID string) ([]DepartmentStat, bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	byDept, ok := s.statsCache[userID]
	if !ok {
		return nil, false
	}
	return s.orderStats(byDept), true
}

func (s *Service) setCachedStats(userID string, stats []DepartmentStat) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if len(s.statsCache) >= maxCachedUsers {
		s.statsCache = make(map[string]map[string]DepartmentStat)
	}
	byDept := make(map[string]DepartmentStat, len(stats))
	for _, stat := range stats {
		byDept[stat.Department] = stat
	}
	s.statsCache[userID] = byDept
}

func (s *Service) updateCachedStatsAfterResult(record ExamRecord) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	// Only patch users whose stats were already read; everyone else is
	// rebuilt from the store on demand.
	byDept, ok := s.statsCache[record.UserID]
	if !ok {
		return
	}

	stat := byDept[record.Department]
	stat.Department = record.Department
	stat.Exams++
	stat.Answered += record.Total
	stat.Correct += record.Correct
	byDept[record.Department] = stat
}

// orderStats returns the stats in catalog order. Departments missing from
// the catalog are appended at the end. Callers must hold cacheMu.
func (s *Service) orderStats(byDept map[string]DepartmentStat) []DepartmentStat {
	out := make([]DepartmentStat, 0, len(byDept))
	listed := make(map[string]bool, len(byDept))
	for _, dept := range s.departments.Departments() {
		if stat, ok := byDept[dept.ID]; ok {
			out = append(out, stat)
			listed[dept.ID] = true
		}
	}
	for id, stat := range byDept {
		if !listed[id] {
			out = append(out, stat)
		}
	}
	return out
}
