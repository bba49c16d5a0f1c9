package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"

	"dogfeed/handlers"
	"dogfeed/middleware"
	"dogfeed/services"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as-is")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		log.Fatal("MONGODB_URI environment variable is not set")
	}
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("MongoDB connection failed: %v", err)
	}
	if err := client.Ping(context.Background(), nil); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}
	log.Println("Connected to MongoDB")
	usersCollection := client.Database("dogfeed").Collection("users")

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		log.Fatal("REDIS_ADDR environment variable is not set")
	}
	redisDB := 0
	if redisDBStr := os.Getenv("REDIS_DB"); redisDBStr != "" {
		redisDB, err = strconv.Atoi(redisDBStr)
		if err != nil {
			log.Fatalf("Invalid REDIS_DB value: %v", err)
		}
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   redisDB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Services, explicitly constructed and injected
	identityService := services.NewIdentityService(usersCollection, redisClient, jwtSecret)
	profileService := services.NewProfileService(
		services.NewMongoDocumentStore(usersCollection),
		services.NewRedisChangeFeed(redisClient),
	)
	dogService := services.NewDogService(&http.Client{})
	selectionService := services.NewSelectionService()

	authHandler := handlers.NewAuthHandler(identityService)
	breedHandler := handlers.NewBreedHandler(dogService, selectionService)
	profileHandler := handlers.NewProfileHandler(profileService)
	sessionHandler := handlers.NewSessionHandler(identityService, profileService)

	r := mux.NewRouter()

	// CORS middleware
	allowedOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	r.Use(middleware.CORSMiddleware(allowedOrigins))
	r.Use(middleware.ErrorMiddleware())

	// Auth routes
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/signup", authHandler.SignUp).Methods("POST", "OPTIONS")
	authRouter.HandleFunc("/login", authHandler.SignIn).Methods("POST", "OPTIONS")

	// Session stream: open, the first event says whether a user is present
	r.HandleFunc("/session/watch", sessionHandler.Watch).Methods("GET")

	// Authenticated routes
	apiRouter := r.PathPrefix("/").Subrouter()
	apiRouter.Use(middleware.JWTMiddleware(jwtSecret))
	apiRouter.HandleFunc("/auth/signout", authHandler.SignOut).Methods("POST", "OPTIONS")
	apiRouter.HandleFunc("/auth/me", authHandler.Me).Methods("GET", "OPTIONS")
	apiRouter.HandleFunc("/breeds", breedHandler.GetBreeds).Methods("GET", "OPTIONS")
	apiRouter.HandleFunc("/selection", breedHandler.PutSelection).Methods("PUT", "OPTIONS")
	apiRouter.HandleFunc("/feed", breedHandler.GetFeed).Methods("GET", "OPTIONS")
	apiRouter.HandleFunc("/profile/likes", profileHandler.GetLikes).Methods("GET", "OPTIONS")
	apiRouter.HandleFunc("/profile/likes/toggle", profileHandler.ToggleLike).Methods("POST", "OPTIONS")
	apiRouter.HandleFunc("/profile/likes/watch", profileHandler.WatchLikes).Methods("GET")

	log.Println("Server starting on :8080")
	log.Fatal(http.ListenAndServe(":8080", r))
}
