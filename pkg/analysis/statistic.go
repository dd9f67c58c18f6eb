package analysis

import (
	"fmt"
	"sort"

	"github.com/quekou/quekou/pkg/errors"
	"github.com/quekou/quekou/pkg/model"
)

// Statistic 需求基线统计策略
// 在配置加载时选定一次，计算过程中不再按方法名分支
type Statistic interface {
	Method() model.StatisticMethod
	Apply(samples []float64) float64
}

// NewStatistic 根据配置创建统计策略
func NewStatistic(method model.StatisticMethod) (Statistic, error) {
	switch method {
	case model.StatisticMean:
		return meanStatistic{}, nil
	case model.StatisticMedian:
		return medianStatistic{}, nil
	case model.StatisticP25:
		return p25Statistic{}, nil
	default:
		return nil, errors.Configuration("statistic_method",
			fmt.Sprintf("不支持的统计方法 '%s'", method))
	}
}

type meanStatistic struct{}

func (meanStatistic) Method() model.StatisticMethod { return model.StatisticMean }

func (meanStatistic) Apply(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range samples {
		sum += v
	}
	return sum / float64(len(samples))
}

type medianStatistic struct{}

func (medianStatistic) Method() model.StatisticMethod { return model.StatisticMedian }

func (medianStatistic) Apply(samples []float64) float64 {
	return percentile(samples, 0.5)
}

type p25Statistic struct{}

func (p25Statistic) Method() model.StatisticMethod { return model.StatisticP25 }

func (p25Statistic) Apply(samples []float64) float64 {
	return percentile(samples, 0.25)
}

// percentile 线性插值分位数
func percentile(samples []float64, p float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lower := int(pos)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// iqrFilter 按 [Q1-k·IQR, Q3+k·IQR] 剔除离群样本
// 返回保留的样本与被剔除的数量；k<=0 或样本过少时不过滤
func iqrFilter(samples []float64, k float64) (kept []float64, removed int) {
	if k <= 0 || len(samples) < 4 {
		return samples, 0
	}

	q1 := percentile(samples, 0.25)
	q3 := percentile(samples, 0.75)
	iqr := q3 - q1
	low := q1 - k*iqr
	high := q3 + k*iqr

	for _, v := range samples {
		if v < low || v > high {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	return kept, removed
}
