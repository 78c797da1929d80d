package store

// Ключи и поля хранилища собраны в одном месте, чтобы их формат
// не расползался по коду.
const (
	// BloomKey — общий фильтр Блума всех когда-либо выданных идентификаторов
	BloomKey = "bf:short_links"
	// LeaderboardKey — глобальная таблица лидеров по кликам
	LeaderboardKey = "leaderboard:top_links"

	// FieldQRCodePath — поле хеша с путём к сгенерированному QR-коду
	FieldQRCodePath = "qr_code_path"
	// FieldTotalClicks — поле хеша со счётчиком кликов
	FieldTotalClicks = "total_clicks"
)

// LinkKey возвращает ключ отображения идентификатора в оригинальный URL
func LinkKey(id string) string { return "link:" + id }

// DataKey возвращает ключ хеша с производными данными ссылки
func DataKey(id string) string { return "data:" + id }

// VisitorsKey возвращает ключ оценщика уникальных посетителей ссылки
func VisitorsKey(id string) string { return "uv:" + id }

// ClicksTSKey возвращает ключ временного ряда кликов по ссылке
func ClicksTSKey(id string) string { return "ts:clicks:" + id }

// StatsCacheKey возвращает ключ кеша собранной статистики ссылки
func StatsCacheKey(id string) string { return "cache:stats:" + id }

// RateKey возвращает ключ оконного счётчика ограничителя частоты
func RateKey(id string) string { return "ratelimit:" + id }
