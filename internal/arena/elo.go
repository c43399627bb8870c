package arena

import "math"

// DefaultKFactor 默认K值
const DefaultKFactor = 32

// ExpectedScore 按积分差计算期望得分
func ExpectedScore(mine, other int) float64 {
	return 1 / (1 + math.Pow(10, float64(other-mine)/400))
}

// roundHalfUp 四舍五入，.5向正无穷方向
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// Rate 计算一场对局后双方的新积分，双方使用同一公式
func Rate(mine, other int, won bool, k float64) (int, int) {
	actual := 0.0
	if won {
		actual = 1
	}
	newMine := roundHalfUp(float64(mine) + k*(actual-ExpectedScore(mine, other)))
	newOther := roundHalfUp(float64(other) + k*((1-actual)-ExpectedScore(other, mine)))
	return newMine, newOther
}
