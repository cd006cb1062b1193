package docs

// @title           Dispatch Operations API
// @version         1.0
// @description     Orders, drivers, earnings, issues and the manager overview of a delivery operation.

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
