package roomhandler

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse

type ListRoomsQuery struct {
	Limit  int `form:"limit,default=50"  binding:"gte=0,lte=500"`
	Offset int `form:"offset,default=0"  binding:"gte=0"`
} // @name ListRoomsQuery

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
} // @name HealthResponse
